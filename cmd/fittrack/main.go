package main

import (
	"context"
	"log"
	"net/http"
	"os"

	// Autoloads .env file to supply environment variables
	_ "github.com/joho/godotenv/autoload"

	"github.com/lildude/fittrack/internal/cache"
	"github.com/lildude/fittrack/internal/database"
	"github.com/lildude/fittrack/internal/handlers/files"
	"github.com/lildude/fittrack/internal/handlers/integrations"
	"github.com/lildude/fittrack/internal/handlers/upload"
	"github.com/lildude/fittrack/internal/handlers/workouts"
	"github.com/lildude/fittrack/internal/middleware"
)

func main() {
	port := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		port = ":" + val
	}

	if _, err := database.InitDB(); err != nil {
		log.Fatal("unable to connect to database: ", err)
	}

	che, err := cache.NewRedisCache(context.Background(), os.Getenv("REDIS_URL"))
	if err != nil {
		log.Fatal("unable to connect to redis: ", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", indexHandler)

	mux.Handle("GET /api/workouts", authed(workouts.ListHandler))
	mux.Handle("POST /api/workouts", authed(workouts.CreateHandler))
	mux.Handle("GET /api/workouts/{id}", authed(workouts.GetHandler))
	mux.Handle("PATCH /api/workouts/{id}", authed(workouts.UpdateHandler))
	mux.Handle("DELETE /api/workouts/{id}", authed(workouts.DeleteHandler))

	mux.Handle("POST /api/files/upload", authed(files.UploadHandler))
	mux.Handle("POST /api/files/upload-multiple", authed(files.UploadMultipleHandler))
	mux.HandleFunc("GET /api/files/supported-formats", files.SupportedFormatsHandler)

	if sh, err := upload.NewHandler(); err != nil {
		log.Println("screenshot upload disabled:", err)
	} else {
		mux.Handle("POST /api/upload/screenshot", authed(sh.Screenshot))
	}

	ih := integrations.NewHandler(che)
	mux.Handle("GET /api/integrations", authed(ih.List))
	mux.Handle("GET /api/integrations/strava/connect", authed(ih.ConnectStrava))
	mux.HandleFunc("GET /api/integrations/strava/callback", ih.StravaCallback)
	mux.Handle("POST /api/integrations/strava/sync", authed(ih.SyncStrava))
	mux.Handle("DELETE /api/integrations/strava", authed(ih.DisconnectStrava))

	log.Println("Starting server on port", port)
	log.Fatal(http.ListenAndServe(port, mux)) //#nosec: G114
}

func authed(h http.HandlerFunc) http.Handler {
	return middleware.RequireAuthentication(h)
}

func indexHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("FitTrack")); err != nil {
		log.Println(err)
	}
}
