package utils

import "github.com/go-playground/validator/v10"

// Validate is the shared validator instance for handlers that validate
// structs outside of iris' ReadJSON path.
var Validate = validator.New()
