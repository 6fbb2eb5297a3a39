package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/platform/auth/tokencodec"
	platformclock "github.com/yoga-studio/booking-api/internal/platform/clock"
	"github.com/yoga-studio/booking-api/internal/platform/config"
)

// Tiny dev-only token minter.
//
// It signs HS512 tokens with the same JWT_SECRET the API verifies against, so local clients
// can call the API without a login round trip. The subject must name an existing account
// for the API to accept the token.

func main() {
	port := getenv("PORT", "5556")

	cfg, err := config.LoadAuthConfigFromEnv()
	if err != nil {
		log.Fatalf("invalid auth config: %v", err)
	}
	codec, err := tokencodec.New(cfg, platformclock.NewSystemClock())
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newMux(codec),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("devtoken listening on :%s (ttl=%s)", port, cfg.TTL)
	log.Fatal(srv.ListenAndServe())
}

type issuer interface {
	Issue(p domain.Principal) (tokencodec.Token, string, error)
}

func newMux(codec issuer) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Mint a token:
	//   GET /token?sub=yoga@studio.com
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		sub := strings.TrimSpace(r.URL.Query().Get("sub"))
		if sub == "" {
			http.Error(w, "missing sub", http.StatusBadRequest)
			return
		}
		// Only the subject reaches the token; the id is a placeholder.
		p, err := domain.NewPrincipal(1, domain.Username(sub), domain.PersonName{}, false, "")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		tok, raw, err := codec.Issue(p)
		if err != nil {
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": raw,
			"type":  "Bearer",
			"sub":   tok.Subject,
			"exp":   tok.ExpiresAt.Unix(),
		})
	})

	return mux
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
