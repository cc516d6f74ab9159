package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/staywo/authgate/internal/common"
	"github.com/staywo/authgate/internal/dbx"
	"github.com/staywo/authgate/internal/server/models"
	usersrepo "github.com/staywo/authgate/internal/server/repositories/users"
	verificationsrepo "github.com/staywo/authgate/internal/server/repositories/verifications"
)

// --- in-memory fakes shared by the service tests ---

type fakeUsersRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.User

	createErr error
	findErr   error
	calls     int
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[int64]*models.User{}}
}

func (f *fakeUsersRepo) clone(u *models.User) *models.User {
	c := *u
	return &c
}

func (f *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, u := range f.byID {
		if u.Email == user.Email {
			return nil, common.ErrorConflict
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	f.byID[user.ID] = f.clone(user)
	return f.clone(user), nil
}

func (f *fakeUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range f.byID {
		if u.Email == email {
			return f.clone(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if u, ok := f.byID[id]; ok {
		return f.clone(u), nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) List(ctx context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for id := int64(1); id <= f.nextID; id++ {
		if u, ok := f.byID[id]; ok {
			out = append(out, f.clone(u))
		}
	}
	return out, nil
}

func (f *fakeUsersRepo) Update(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[user.ID]; !ok {
		return common.ErrorNotFound
	}
	f.byID[user.ID] = f.clone(user)
	return nil
}

func (f *fakeUsersRepo) SetVerified(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			u.Verified = true
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeUsersRepo) DeleteByID(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsersRepo) DeleteAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID = map[int64]*models.User{}
	return nil
}

type pendingVerification struct {
	token   string
	created time.Time
}

type fakeVerificationsRepo struct {
	mu      sync.Mutex
	byEmail map[string]pendingVerification

	issueErr error
}

func newFakeVerificationsRepo() *fakeVerificationsRepo {
	return &fakeVerificationsRepo{byEmail: map[string]pendingVerification{}}
}

func (f *fakeVerificationsRepo) Issue(ctx context.Context, email, token string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.issueErr != nil {
		return f.issueErr
	}
	if p, ok := f.byEmail[email]; ok && time.Since(p.created) < ttl {
		return common.ErrorAlreadyPending
	}
	f.byEmail[email] = pendingVerification{token: token, created: time.Now()}
	return nil
}

func (f *fakeVerificationsRepo) Consume(ctx context.Context, token string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, p := range f.byEmail {
		if p.token == token {
			if time.Since(p.created) >= ttl {
				return "", common.ErrorNotFound
			}
			delete(f.byEmail, email)
			return email, nil
		}
	}
	return "", common.ErrorNotFound
}

func (f *fakeVerificationsRepo) FindByEmail(ctx context.Context, email string) (*models.EmailVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.byEmail[email]; ok {
		return &models.EmailVerification{Email: email, Token: p.token, CreatedAt: p.created}, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeVerificationsRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byEmail)
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	v *fakeVerificationsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository      { return m.u }
func (m *fakeRepoManager) Verifications(db dbx.DBTX) verificationsrepo.Repository {
	return m.v
}

type sentMail struct {
	kind  string // "verification" or "reset"
	email string
	token string
}

type fakeNotifier struct {
	mu       sync.Mutex
	sent     []sentMail
	sendErr  error
	delivery string
}

func (f *fakeNotifier) SendVerification(ctx context.Context, email, username, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, sentMail{kind: "verification", email: email, token: token})
	return f.delivery, nil
}

func (f *fakeNotifier) SendPasswordReset(ctx context.Context, email, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, sentMail{kind: "reset", email: email, token: token})
	return f.delivery, nil
}
