package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/voicedocflow/internal/services"
)

var (
	transcriberInstance *services.TranscriberService
	once                sync.Once
	initErr             error
)

func init() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	// "HandleTranscriber" is the entry point name configured in GCP.
	functions.HTTP("HandleTranscriber", handleTranscriber)
}

// main is required by the Go Functions Framework.
func main() {}

// handleTranscriber serves the whole HTTP surface from one function.
func handleTranscriber(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		transcriberInstance, initErr = services.NewTranscriberService(context.Background())
	})
	if initErr != nil {
		log.Printf("CRITICAL: Transcriber initialization failed: %v", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	transcriberInstance.Handler().ServeHTTP(w, r)
}
