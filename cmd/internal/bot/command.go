package bot

import (
	"strings"

	"regbot/cmd/internal/registration"
)

// RegisterCommand is the command prefix for registrations.
const RegisterCommand = "!register"

// Usage is replied when a register command is malformed.
const Usage = "Usage: `!register <name> <email> <team_id>`"

// IsRegisterCommand reports whether content invokes the register command.
func IsRegisterCommand(content string) bool {
	f := strings.Fields(content)
	return len(f) > 0 && f[0] == RegisterCommand
}

// ParseRegister parses "!register <name...> <email> <team_id>". The name may span
// several words; email and team id are always the last two tokens.
func ParseRegister(content string) (registration.Input, bool) {
	f := strings.Fields(content)
	if len(f) < 4 || f[0] != RegisterCommand {
		return registration.Input{}, false
	}
	n := len(f)
	return registration.Input{
		Name:   strings.Join(f[1:n-2], " "),
		Email:  f[n-2],
		TeamID: f[n-1],
	}, true
}
