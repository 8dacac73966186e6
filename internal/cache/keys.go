package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func AnalysisKey(userID uuid.UUID, messageID string) string {
	return fmt.Sprintf("analysis:%s:%s", userID, messageID)
}

func OAuthTokenKey(userID uuid.UUID) string {
	return fmt.Sprintf("oauth:token:%s", userID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
