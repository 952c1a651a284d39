package view

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MrJamesThe3rd/treasury/internal/app"
	"github.com/MrJamesThe3rd/treasury/internal/policy"
	"github.com/MrJamesThe3rd/treasury/internal/user"
)

// View is the interface that all TUI screens implement.
type View interface {
	tea.Model
	Title() string
	ShortHelp() string
}

type CommonModel struct {
	Width  int
	Height int
}

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

// Session is the signed in user and the services acting on their behalf.
// It is shared by every screen.
type Session struct {
	*app.Services
	user *user.User
}

func NewSession(svc *app.Services) *Session {
	return &Session{Services: svc}
}

func (s *Session) User() *user.User {
	return s.user
}

func (s *Session) SignIn(u *user.User) {
	s.user = u
}

// Actor re-reads the signed in user so rank and membership changes made
// elsewhere apply immediately. Commands call it off the update loop, so it
// never writes to the session.
func (s *Session) Actor(ctx context.Context) (policy.Actor, error) {
	fresh, err := s.Users.Get(ctx, s.user.Actor(), s.user.ID)
	if err != nil {
		return policy.Actor{}, err
	}

	return fresh.Actor(), nil
}
