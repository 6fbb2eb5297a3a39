package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/yoga-studio/booking-api/internal/ports/out/idempotency"
)

const idempotencyKeyHeader = "Idempotency-Key"

// idempotentRequest tracks one keyed write. A zero value (no key, no store) is inert.
type idempotentRequest struct {
	store idempotency.Store
	resp  idempotency.Fingerprint
}

// beginIdempotent handles the Idempotency-Key header for a write on route.
//   - Replay if same caller+key+route+bodyHash
//   - Reject if same caller+key+route with a different bodyHash (409)
//
// It returns done=true when a response was already written.
func (s *Server) beginIdempotent(w http.ResponseWriter, r *http.Request, route string, body any) (idempotentRequest, bool) {
	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if key == "" || s.Idem == nil {
		return idempotentRequest{}, false
	}
	caller, ok := PrincipalFromContext(r.Context())
	if !ok {
		return idempotentRequest{}, false
	}
	bodyHash, err := hashBody(body)
	if err != nil {
		writeAppError(w, r, err)
		return idempotentRequest{}, true
	}

	ctx := r.Context()
	metaFP := idempotency.Fingerprint{
		Key:    idempotency.Key(key),
		UserID: caller.ID(),
		Method: r.Method,
		Route:  route,
	}
	if meta, ok, err := s.Idem.Get(ctx, metaFP); err != nil {
		writeAppError(w, r, err)
		return idempotentRequest{}, true
	} else if ok {
		if string(meta.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return idempotentRequest{}, true
		}
	} else {
		_ = s.Idem.Put(ctx, metaFP, idempotency.Record{
			StatusCode:  0,
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   time.Now().UTC(),
		})
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	if rec, ok, err := s.Idem.Get(ctx, respFP); err != nil {
		writeAppError(w, r, err)
		return idempotentRequest{}, true
	} else if ok && rec.StatusCode == http.StatusOK && strings.HasPrefix(rec.ContentType, "application/json") {
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return idempotentRequest{}, true
	}
	return idempotentRequest{store: s.Idem, resp: respFP}, false
}

// finish stores a successful response for replay and writes it.
func (ir idempotentRequest) finish(w http.ResponseWriter, r *http.Request, payload any) {
	if ir.store != nil {
		if b, err := json.Marshal(payload); err == nil {
			_ = ir.store.Put(r.Context(), ir.resp, idempotency.Record{
				StatusCode:  http.StatusOK,
				ContentType: "application/json",
				Body:        append(b, '\n'),
				CreatedAt:   time.Now().UTC(),
			})
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func hashBody(body any) (string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
