package api

import (
	"context"
	"testing"
	"time"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/domain/chat"
	"github.com/example/taskdesk/domain/user"
	"github.com/example/taskdesk/modules/account"
	"github.com/example/taskdesk/modules/ledger"
	"github.com/example/taskdesk/modules/presence"
	"github.com/example/taskdesk/modules/store"
	"github.com/example/taskdesk/modules/taskflow"
	"github.com/go-monolith/mono"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// startWiredApp runs the account, taskflow and ledger modules on an embedded
// bus and returns an APIModule whose ports were handed out by the framework.
func startWiredApp(t *testing.T) *APIModule {
	t.Helper()

	db, err := store.Open(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	records := store.New(db)
	clock := clockwork.NewRealClock()
	logger := &mockLogger{}

	app, err := mono.NewMonoApplication(
		mono.WithLogLevel(mono.LogLevelError),
	)
	require.NoError(t, err)

	jwtConfig := account.DefaultJWTConfig()
	jwtConfig.SecretKey = "wiring-secret"
	seed := account.AdminSeed{Name: "Root", Email: "root@example.com", Password: "rootpass"}

	api := NewModule(Config{Addr: "127.0.0.1:0", SendBuffer: 8}, clock, logger)
	api.SetRegistry(presence.NewRegistry(logger))

	require.NoError(t, app.Register(account.NewModule(records, jwtConfig, bcrypt.MinCost, seed, clock, logger)))
	require.NoError(t, app.Register(taskflow.NewModule(records, clock, time.Second, logger)))
	require.NoError(t, app.Register(ledger.NewModule(records, nil, clock, logger)))
	require.NoError(t, app.Register(api))

	require.NoError(t, app.Start(context.Background()))
	t.Cleanup(func() {
		_ = app.Stop(context.Background())
	})
	return api
}

func TestAdapters_RoundTripThroughServices(t *testing.T) {
	api := startWiredApp(t)
	ctx := context.Background()

	login, err := api.accounts.Login(ctx, &account.LoginRequest{
		Email: "root@example.com", Password: "rootpass", Role: user.RoleAdmin,
	})
	require.NoError(t, err)
	admin, err := api.accounts.ValidateToken(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, admin.Role)

	emp, err := api.accounts.CreateEmployee(ctx, &account.CreateEmployeeRequest{
		Actor: admin, Name: "Eve", Email: "eve@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	_, err = api.accounts.CreateEmployee(ctx, &account.CreateEmployeeRequest{
		Actor: admin, Name: "Eve", Email: "eve@example.com", Password: "secret1",
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	empLogin, err := api.accounts.Login(ctx, &account.LoginRequest{
		Email: "eve@example.com", Password: "secret1", Role: user.RoleEmployee,
	})
	require.NoError(t, err)

	msg, err := api.chat.SendMessage(ctx, emp.ID, admin.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Text)

	counts, err := api.chat.UnseenCounts(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.UnseenCounts{emp.ID: 1}, counts)

	// Only the receiver may acknowledge; the kind survives the round trip.
	_, err = api.chat.MarkSeen(ctx, msg.ID, emp.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	marked, err := api.chat.MarkConversationSeen(ctx, admin.ID, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	require.NoError(t, api.accounts.DeleteEmployee(ctx, &account.EmployeeRequest{Actor: admin, EmployeeID: emp.ID}))

	_, err = api.accounts.ValidateToken(ctx, empLogin.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = api.chat.SendMessage(ctx, emp.ID, admin.ID, "still here?")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
