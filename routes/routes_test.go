package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"homematch-server/models"
	"homematch-server/storage"
	"homematch-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// buildTestApp creates a minimal iris app with the notification and viewing
// routes behind the access-token verifier.
func buildTestApp(t *testing.T) *iris.Application {
	t.Helper()
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")
	app := iris.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	notifications := app.Party("/api/notifications")
	{
		notifications.Get("/feed", accessTokenVerifierMiddleware, GetFeed)
		notifications.Get("/unread-count", accessTokenVerifierMiddleware, GetUnreadCount)
	}
	viewing := app.Party("/api/viewing")
	{
		viewing.Post("/reservation/{id:uint}/accept", accessTokenVerifierMiddleware, AcceptReservation)
	}

	if err := app.Build(); err != nil {
		t.Fatalf("failed to build test app: %v", err)
	}
	return app
}

func setupRoutesTestDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.Notification{},
		&models.ViewingReservation{},
		&models.TenantRating{},
		&models.LandlordRating{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	storage.DB = db
	storage.Redis = nil
}

func signTestToken(t *testing.T, id uint, role string) string {
	t.Helper()
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 0)
	token, err := signer.Sign(utils.AccessToken{ID: id, Role: role})
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return string(token)
}

func TestFeedRouteRequiresToken(t *testing.T) {
	setupRoutesTestDB(t)
	app := buildTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/feed", nil)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code == http.StatusOK {
		t.Fatalf("expected non-200 without token, got %d", resp.Code)
	}
}

func TestFeedRoutePartitions(t *testing.T) {
	setupRoutesTestDB(t)
	app := buildTestApp(t)

	user := models.User{FirstName: "Tawanda", LastName: "Moyo", Email: "tawanda@example.com", Role: "tenant"}
	if err := storage.DB.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	storage.DB.Create(&models.Notification{UserID: user.ID, Kind: models.NotificationDirect, Message: "Seen one", IsRead: true})
	storage.DB.Create(&models.Notification{UserID: user.ID, Kind: models.NotificationDirect, Message: "Unseen one"})

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/feed", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, user.ID, user.Role))
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Seen   []json.RawMessage `json:"seen"`
		Unseen []json.RawMessage `json:"unseen"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode feed response: %v", err)
	}
	if len(body.Seen) != 1 || len(body.Unseen) != 1 {
		t.Fatalf("expected 1 seen and 1 unseen, got %d and %d", len(body.Seen), len(body.Unseen))
	}
}

func TestAcceptRouteStatusMapping(t *testing.T) {
	setupRoutesTestDB(t)
	app := buildTestApp(t)

	owner := models.User{FirstName: "Linda", LastName: "Chikore", Email: "linda@example.com", Role: "landlord"}
	storage.DB.Create(&owner)
	requester := models.User{FirstName: "Tawanda", LastName: "Moyo", Email: "tawanda@example.com", Role: "tenant"}
	storage.DB.Create(&requester)
	reservation := models.ViewingReservation{
		NotificationID: 1,
		ListingID:      1,
		RequesterID:    requester.ID,
		OwnerID:        owner.ID,
		StartTime:      "10:00",
		EndTime:        "11:00",
		Status:         models.ReservationPending,
	}
	storage.DB.Create(&reservation)

	accept := func(reservationID uint, userID uint, role string) *httptest.ResponseRecorder {
		target := "/api/viewing/reservation/" + strconv.FormatUint(uint64(reservationID), 10) + "/accept"
		req := httptest.NewRequest(http.MethodPost, target, nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, userID, role))
		resp := httptest.NewRecorder()
		app.ServeHTTP(resp, req)
		return resp
	}

	// missing reservation -> 404
	if resp := accept(999, owner.ID, owner.Role); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing reservation, got %d", resp.Code)
	}
	// non-owner -> 403
	if resp := accept(reservation.ID, requester.ID, requester.Role); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", resp.Code)
	}
	// owner -> 200
	if resp := accept(reservation.ID, owner.ID, owner.Role); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner accept, got %d: %s", resp.Code, resp.Body.String())
	}
	// second accept -> 409
	if resp := accept(reservation.ID, owner.ID, owner.Role); resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for repeated accept, got %d", resp.Code)
	}
}
