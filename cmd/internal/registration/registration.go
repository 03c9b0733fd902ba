// Package registration owns pending registrations: validation, persistence and the
// issuing flow shared by the register command and the webhook importer.
package registration

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	emailRe  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	teamIDRe = regexp.MustCompile(`^([A-Za-z])0*([0-9]{1,6})$`)
)

// PendingRegistration is an issued invite waiting for its join.
type PendingRegistration struct {
	InviteKey   string
	DisplayName string
	TeamID      string
	Email       string
}

// AuditEntry is an append-only record of an issued invite.
type AuditEntry struct {
	ID          int64
	InviteKey   string
	DisplayName string
	TeamID      string
	Email       string
	CreatedAt   time.Time
}

// Input is the raw registration request from a command or webhook.
type Input struct {
	Name   string
	Email  string
	TeamID string
}

// Normalize validates in and returns its canonical form.
func Normalize(in Input) (Input, error) {
	name := strings.Join(strings.Fields(in.Name), " ")
	if name == "" {
		return Input{}, ValidationError{Field: "name", Msg: "required"}
	}
	email := strings.TrimSpace(in.Email)
	if !ValidEmail(email) {
		return Input{}, ValidationError{Field: "email", Msg: "malformed address"}
	}
	teamID, err := NormalizeTeamID(in.TeamID)
	if err != nil {
		return Input{}, err
	}
	return Input{
		Name:   cases.Title(language.Und).String(name),
		Email:  email,
		TeamID: teamID,
	}, nil
}

// ValidEmail reports whether s looks like a deliverable address.
func ValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// NormalizeTeamID upper-cases the type letter and pads the number to 3 digits.
// Range checks belong to the bucket table, not here.
func NormalizeTeamID(s string) (string, error) {
	m := teamIDRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", ValidationError{Field: "team_id", Msg: "expected <letter><number>"}
	}
	n, err := strconv.Atoi(m[2])
	if err != nil || n <= 0 {
		return "", ValidationError{Field: "team_id", Msg: "number must be positive"}
	}
	return fmt.Sprintf("%s%03d", strings.ToUpper(m[1]), n), nil
}

// EmailFingerprint returns a short stable hash of an address for logs.
func EmailFingerprint(email string) string {
	sum := blake2b.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:8])
}
