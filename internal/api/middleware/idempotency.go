package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/storage"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type idempotencyRecord struct {
	RequestHash string          `json:"request_hash"`
	Status      int             `json:"status"`
	Body        json.RawMessage `json:"body"`
}

// Idempotency replays the stored response when a POST arrives again with the
// same Idempotency-Key and body; the same key with a different body is a
// conflict. Requests without the header pass through untouched.
func Idempotency(blobs storage.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process request"})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])

		if raw, err := blobs.Get(c.Request.Context(), storage.NSIdempotency, key); err == nil {
			var rec idempotencyRecord
			if err := json.Unmarshal(raw, &rec); err == nil {
				if rec.RequestHash != requestHash {
					c.JSON(http.StatusConflict, gin.H{
						"error": "idempotency key conflict: same key used with different payload",
					})
					c.Abort()
					return
				}
				c.Data(rec.Status, "application/json", rec.Body)
				c.Abort()
				return
			}
		} else if !errors.Is(err, storage.ErrKeyNotFound) {
			logger.Warn("idempotency lookup failed", zap.Error(err))
		}

		// Capture the response so a retry can replay it.
		writer := &responseRecorder{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if status >= 200 && status < 300 {
			rec := idempotencyRecord{
				RequestHash: requestHash,
				Status:      status,
				Body:        writer.body.Bytes(),
			}
			if raw, err := json.Marshal(rec); err == nil {
				if err := blobs.Put(c.Request.Context(), storage.NSIdempotency, key, raw); err != nil {
					logger.Warn("failed to store idempotency record", zap.Error(err))
				}
			}
		}
	}
}

type responseRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}
