package main

import (
	"fmt"
	"homematch-server/routes"
	"homematch-server/services"
	"homematch-server/storage"
	"homematch-server/utils"
	"homematch-server/ws"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	// Initialize services
	storage.InitializeDB()
	storage.InitializeRedis()

	hub := ws.NewHub()
	services.Live = hub

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	// Minimal middleware - compression only
	app.Use(iris.Compression)

	// JWT Verifiers
	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	// Health check endpoint
	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})
	app.Get("/metrics", iris.FromStd(promhttp.Handler()))

	// Routes
	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Get("/{id:uint}", accessTokenVerifierMiddleware, routes.GetUser)
	}

	listing := app.Party("/api/listing")
	{
		listing.Get("/", routes.SearchListings)
		listing.Post("/", accessTokenVerifierMiddleware, routes.CreateListing)
		listing.Get("/{id:uint}", routes.GetListing)
		listing.Get("/owner/{id:uint}", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.GetListingsByOwnerID)
	}

	conversation := app.Party("/api/conversation")
	{
		conversation.Post("/", accessTokenVerifierMiddleware, routes.CreateConversation)
		conversation.Get("/", accessTokenVerifierMiddleware, routes.GetConversationsByUserID)
		conversation.Get("/{id:uint}", accessTokenVerifierMiddleware, routes.GetConversationByID)
		conversation.Delete("/{id:uint}", accessTokenVerifierMiddleware, routes.DeleteConversation)
		conversation.Post("/{id:uint}/typing/start", accessTokenVerifierMiddleware, routes.TypingStart)
		conversation.Post("/{id:uint}/typing/stop", accessTokenVerifierMiddleware, routes.TypingStop)
		conversation.Get("/{id:uint}/typing", accessTokenVerifierMiddleware, routes.ListTyping)
	}

	messages := app.Party("/api/messages")
	{
		messages.Post("/", accessTokenVerifierMiddleware, routes.CreateMessage)
		messages.Get("/", accessTokenVerifierMiddleware, routes.ListMessages)
		messages.Post("/read", accessTokenVerifierMiddleware, routes.MarkConversationRead)
	}

	notifications := app.Party("/api/notifications")
	{
		notifications.Get("/feed", accessTokenVerifierMiddleware, routes.GetFeed)
		notifications.Get("/unread-count", accessTokenVerifierMiddleware, routes.GetUnreadCount)
		notifications.Post("/{id:uint}/read", accessTokenVerifierMiddleware, routes.MarkNotificationRead)
		notifications.Delete("/{kind:string}/{id:uint}", accessTokenVerifierMiddleware, routes.DeleteNotification)
	}

	viewing := app.Party("/api/viewing")
	{
		viewing.Post("/propose", accessTokenVerifierMiddleware, routes.ProposeViewing)
		viewing.Post("/notification/{id:uint}/slots", accessTokenVerifierMiddleware, routes.SelectConcreteSlot)
		viewing.Get("/notification/{id:uint}/reservations", accessTokenVerifierMiddleware, routes.ListViewingReservations)
		viewing.Post("/notification/{id:uint}/accept-all", accessTokenVerifierMiddleware, routes.AcceptAllPending)
		viewing.Post("/reservation/{id:uint}/accept", accessTokenVerifierMiddleware, routes.AcceptReservation)
		viewing.Post("/reservation/{id:uint}/reject", accessTokenVerifierMiddleware, routes.RejectReservation)
	}

	ratings := app.Party("/api/ratings")
	{
		ratings.Post("/tenant", accessTokenVerifierMiddleware, routes.CreateTenantRating)
		ratings.Post("/landlord", accessTokenVerifierMiddleware, routes.CreateLandlordRating)
	}

	// Live channel
	app.Get("/api/live", accessTokenVerifierMiddleware, ws.ServeWS(hub))

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
