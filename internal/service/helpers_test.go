package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-service/internal/config"
	"github.com/iliyamo/account-service/internal/media"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/utils"
)

type fakeUploader struct {
	mu    sync.Mutex
	fail  map[string]bool
	count int
}

func (f *fakeUploader) Upload(_ context.Context, localPath string) (*media.Asset, error) {
	if localPath == "" {
		return nil, media.ErrNoFile
	}
	defer os.Remove(localPath)
	f.mu.Lock()
	defer f.mu.Unlock()
	name := filepath.Base(localPath)
	if f.fail[name] {
		return nil, errors.New("media host unavailable")
	}
	f.count++
	return &media.Asset{URL: "http://cdn.local/" + name, Key: name}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.AccountEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.AccountEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store    *repository.MemoryUserRepo
	codec    *utils.TokenCodec
	uploader *fakeUploader
	events   *recordingPublisher
	accounts *AccountService
	sessions *SessionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, _ := test.NewNullLogger()
	store := repository.NewMemoryUserRepo()
	codec := utils.NewTokenCodec(config.TokenConfig{
		AccessSecret:  "access-secret",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    24 * time.Hour,
	})
	hasher := utils.NewPasswordHasher(4)
	up := &fakeUploader{fail: map[string]bool{}}
	ev := &recordingPublisher{}
	return &fixture{
		store:    store,
		codec:    codec,
		uploader: up,
		events:   ev,
		accounts: NewAccountService(store, up, hasher, nil, ev, log),
		sessions: NewSessionService(store, codec, hasher, nil, ev, log),
	}
}

// stage writes a throwaway file standing in for a multipart upload.
func stage(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("img"), 0o644))
	return p
}

func (f *fixture) register(t *testing.T, username, email, password string) string {
	t.Helper()
	p, err := f.accounts.Register(context.Background(), RegisterInput{
		Username:   username,
		Email:      email,
		Fullname:   "Test " + username,
		Password:   password,
		AvatarPath: stage(t, username+"-avatar.png"),
	})
	require.NoError(t, err)
	return p.ID
}
