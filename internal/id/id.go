package id

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	transactionPrefix = "txn_"
	templatePrefix    = "rec_"
	dateLayout        = "20060102"
	tokenLen          = 8
)

// NewTransactionID returns a placeholder ID like "txn_3f1c...". Storage may
// assign its own identity later.
func NewTransactionID() string {
	return transactionPrefix + uuid.NewString()
}

// NewTemplateID returns a recurring template ID like "rec_9a0b...".
func NewTemplateID() string {
	return templatePrefix + uuid.NewString()
}

// MaterializedID returns an ID for a transaction produced from a template on
// date, like "rec_9a0b..._20240215_1a2b3c4d". The random token keeps two
// materializations on the same day distinct.
func MaterializedID(templateID string, date time.Time) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:tokenLen]
	return fmt.Sprintf("%s_%s_%s", templateID, date.UTC().Format(dateLayout), token)
}

// ParseMaterializedID splits a materialized ID into its template ID and date.
func ParseMaterializedID(id string) (templateID string, date time.Time, err error) {
	parts := strings.Split(id, "_")
	if len(parts) < 3 {
		return "", time.Time{}, fmt.Errorf("invalid materialized ID format: %q", id)
	}

	token := parts[len(parts)-1]
	if len(token) != tokenLen {
		return "", time.Time{}, fmt.Errorf("invalid token in materialized ID %q", id)
	}

	date, err = time.Parse(dateLayout, parts[len(parts)-2])
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid date in materialized ID %q: %w", id, err)
	}

	templateID = strings.Join(parts[:len(parts)-2], "_")
	if templateID == "" {
		return "", time.Time{}, fmt.Errorf("missing template in materialized ID %q", id)
	}
	return templateID, date, nil
}
