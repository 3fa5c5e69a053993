package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"linkly-api/internal/apperr"
	"linkly-api/internal/entities"
	"linkly-api/internal/metrics"
	"linkly-api/internal/repository"
	"linkly-api/internal/repository/mocks"
)

const testBaseURL = "http://localhost:5000"

func sequenceGenerator(codes ...string) CodeGenerator {
	var mu sync.Mutex
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(codes) == 0 {
			return "", errors.New("no more codes")
		}
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}
}

func TestGenerateShortCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := GenerateShortCode()
		require.NoError(t, err)
		require.Len(t, code, codeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, c), "unexpected rune %q", c)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 990)
}

func TestResolveOrCreate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		longURL string
		message string
	}{
		{name: "empty", longURL: "", message: msgProvideURL},
		{name: "blank", longURL: "   ", message: msgProvideURL},
		{name: "no scheme", longURL: "example.com/a", message: msgInvalidURL},
		{name: "plain words", longURL: "not a url", message: msgInvalidURL},
		{name: "relative path", longURL: "/a/b", message: msgInvalidURL},
		{name: "scheme only", longURL: "https://", message: msgInvalidURL},
		{name: "space", longURL: "https://example.com/a b", message: msgInvalidURL},
		{name: "angle bracket", longURL: "https://example.com/<script>", message: msgInvalidURL},
		{name: "double quote", longURL: "https://example.com/a\"b", message: msgInvalidURL},
		{name: "braces and pipe", longURL: "https://example.com/{x}|^", message: msgInvalidURL},
		{name: "non-ASCII", longURL: "https://example.com/日本", message: msgInvalidURL},
		{name: "truncated escape", longURL: "https://example.com/a%2", message: msgInvalidURL},
		{name: "non-hex escape", longURL: "https://example.com/a%zz", message: msgInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemoryURLRepository()
			svc := NewURLService(repo, testBaseURL, zap.NewNop(), nil)

			res, err := svc.ResolveOrCreate(context.Background(), tt.longURL, nil)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.message, appErr.Message)
			assert.Zero(t, repo.Len(), "invalid input must not be persisted")
		})
	}
}

func TestResolveOrCreate_AcceptsRFC3986Characters(t *testing.T) {
	repo := repository.NewMemoryURLRepository()
	svc := NewURLService(repo, testBaseURL, zap.NewNop(), nil)

	for _, longURL := range []string{
		"https://example.com/%E6%97%A5%E6%9C%AC",
		"https://user@example.com:8443/a_b-c.d~e?q=1&r=(2)*3+4,5;x=$'!'#frag",
		"http://[::1]:8080/path",
	} {
		res, err := svc.ResolveOrCreate(context.Background(), longURL, nil)
		require.NoError(t, err, longURL)
		assert.True(t, res.Created)
	}
	assert.Equal(t, 3, repo.Len())
}

func TestResolveOrCreate_CreatesAndDeduplicates(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryURLRepository()
	m := metrics.New()
	svc := NewURLService(repo, testBaseURL+"/", zap.NewNop(), m)

	first, err := svc.ResolveOrCreate(ctx, "https://example.com/a/b", nil)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Len(t, first.Link.Code, codeLength)
	assert.Equal(t, testBaseURL+"/"+first.Link.Code, first.Link.ShortURL)
	assert.Zero(t, first.Link.Clicks)
	assert.Nil(t, first.Link.Owner)

	second, err := svc.ResolveOrCreate(ctx, "https://example.com/a/b", nil)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Link.Code, second.Link.Code)
	assert.Zero(t, second.Link.Clicks)
	assert.Equal(t, 1, repo.Len())

	// Byte-for-byte key: no normalisation of trailing slash or case.
	third, err := svc.ResolveOrCreate(ctx, "https://example.com/a/b/", nil)
	require.NoError(t, err)
	assert.True(t, third.Created)
	assert.NotEqual(t, first.Link.Code, third.Link.Code)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LinksResolved.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LinksResolved.WithLabelValues("existing")))
}

func TestResolveOrCreate_OwnershipIsNotTransferred(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryURLRepository()
	svc := NewURLService(repo, testBaseURL, zap.NewNop(), nil)
	ann, bob := "ann-id", "bob-id"

	owned, err := svc.ResolveOrCreate(ctx, "https://example.com/owned", &ann)
	require.NoError(t, err)
	require.True(t, owned.Created)
	require.NotNil(t, owned.Link.Owner)
	assert.Equal(t, ann, *owned.Link.Owner)

	byBob, err := svc.ResolveOrCreate(ctx, "https://example.com/owned", &bob)
	require.NoError(t, err)
	assert.False(t, byBob.Created)
	assert.Equal(t, owned.Link.Code, byBob.Link.Code)
	require.NotNil(t, byBob.Link.Owner)
	assert.Equal(t, ann, *byBob.Link.Owner)

	anonymous, err := svc.ResolveOrCreate(ctx, "https://example.com/owned", nil)
	require.NoError(t, err)
	assert.False(t, anonymous.Created)
	assert.Equal(t, ann, *anonymous.Link.Owner)

	bobLinks, err := svc.ListByOwner(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, bobLinks)
}

func TestResolveOrCreate_RetriesCodeCollisions(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryURLRepository()
	svc := NewURLService(repo, testBaseURL, zap.NewNop(), nil,
		WithCodeGenerator(sequenceGenerator("AAAAAAA", "AAAAAAA", "metrics", "BBBBBBB")))

	first, err := svc.ResolveOrCreate(ctx, "https://example.com/1", nil)
	require.NoError(t, err)
	assert.Equal(t, "AAAAAAA", first.Link.Code)

	second, err := svc.ResolveOrCreate(ctx, "https://example.com/2", nil)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBB", second.Link.Code, "collision and reserved word must be skipped")
}

func TestResolveOrCreate_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryURLRepository()
	codes := make([]string, 0, maxCodeAttempts+1)
	for i := 0; i <= maxCodeAttempts; i++ {
		codes = append(codes, "AAAAAAA")
	}
	svc := NewURLService(repo, testBaseURL, zap.NewNop(), nil, WithCodeGenerator(sequenceGenerator(codes...)))

	_, err := svc.ResolveOrCreate(ctx, "https://example.com/1", nil)
	require.NoError(t, err)

	_, err = svc.ResolveOrCreate(ctx, "https://example.com/2", nil)
	assert.Equal(t, apperr.Transient, apperr.KindOf(err))
	assert.Equal(t, 1, repo.Len())
}

func TestResolveOrCreate_StoreFailures(t *testing.T) {
	storeErr := errors.New("connection refused")

	tests := []struct {
		name  string
		setup func(repo *mocks.MockURLRepository)
	}{
		{
			name: "lookup fails",
			setup: func(repo *mocks.MockURLRepository) {
				repo.EXPECT().FindByLongURL(gomock.Any(), "https://example.com").Return(nil, storeErr)
			},
		},
		{
			name: "insert fails",
			setup: func(repo *mocks.MockURLRepository) {
				repo.EXPECT().FindByLongURL(gomock.Any(), "https://example.com").Return(nil, repository.ErrNotFound)
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, false, storeErr)
			},
		},
		{
			name: "deadline exceeded",
			setup: func(repo *mocks.MockURLRepository) {
				repo.EXPECT().FindByLongURL(gomock.Any(), "https://example.com").Return(nil, context.DeadlineExceeded)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockURLRepository(ctrl)
			tt.setup(repo)

			svc := NewURLService(repo, testBaseURL, zap.NewNop(), nil)
			res, err := svc.ResolveOrCreate(context.Background(), "https://example.com", nil)

			assert.Nil(t, res)
			assert.Equal(t, apperr.Transient, apperr.KindOf(err))
		})
	}
}

func TestResolveOrCreate_ConcurrentInsertReturnsExisting(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockURLRepository(ctrl)
	existing := &entities.ShortLink{ID: "1", Code: "XYZxyz0", LongURL: "https://example.com", Clicks: 3}

	repo.EXPECT().FindByLongURL(gomock.Any(), "https://example.com").Return(nil, repository.ErrNotFound)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, link *entities.ShortLink) (*entities.ShortLink, bool, error) {
			assert.Equal(t, "AAAAAAA", link.Code)
			assert.Equal(t, testBaseURL+"/AAAAAAA", link.ShortURL)
			return existing, false, nil
		})

	svc := NewURLService(repo, testBaseURL, zap.NewNop(), nil, WithCodeGenerator(sequenceGenerator("AAAAAAA")))
	res, err := svc.ResolveOrCreate(context.Background(), "https://example.com", nil)

	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, existing, res.Link)
}

func TestResolveOrCreate_UnknownOwnerFallsBackToAnonymous(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockURLRepository(ctrl)
	ghost := "ghost-user"

	gomock.InOrder(
		repo.EXPECT().FindByLongURL(gomock.Any(), "https://example.com").Return(nil, repository.ErrNotFound),
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, link *entities.ShortLink) (*entities.ShortLink, bool, error) {
				require.NotNil(t, link.Owner)
				assert.Equal(t, ghost, *link.Owner)
				return nil, false, repository.ErrUnknownOwner
			}),
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, link *entities.ShortLink) (*entities.ShortLink, bool, error) {
				assert.Nil(t, link.Owner)
				stored := *link
				stored.ID = "1"
				return &stored, true, nil
			}),
	)

	svc := NewURLService(repo, testBaseURL, zap.NewNop(), nil,
		WithCodeGenerator(sequenceGenerator("AAAAAAA", "BBBBBBB")))
	res, err := svc.ResolveOrCreate(context.Background(), "https://example.com", &ghost)

	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Nil(t, res.Link.Owner)
	assert.Equal(t, "BBBBBBB", res.Link.Code)
}

func TestResolveAndVisit(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryURLRepository()
	m := metrics.New()
	svc := NewURLService(repo, testBaseURL, zap.NewNop(), m)

	res, err := svc.ResolveOrCreate(ctx, "https://example.com/a/b", nil)
	require.NoError(t, err)

	longURL, err := svc.ResolveAndVisit(ctx, res.Link.Code)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a/b", longURL)

	link, err := svc.Lookup(ctx, res.Link.Code)
	require.NoError(t, err)
	assert.EqualValues(t, 1, link.Clicks)

	for _, code := range []string{"", "nope123", strings.ToLower(res.Link.Code) + "x"} {
		_, err = svc.ResolveAndVisit(ctx, code)
		assert.Equal(t, apperr.NotFound, apperr.KindOf(err), "code %q", code)
	}

	link, err = svc.Lookup(ctx, res.Link.Code)
	require.NoError(t, err)
	assert.EqualValues(t, 1, link.Clicks, "unknown codes must not touch the store")
	assert.Equal(t, 1, repo.Len())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Redirects.WithLabelValues("found")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Redirects.WithLabelValues("not_found")))
}

func TestResolveAndVisit_Concurrent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryURLRepository()
	svc := NewURLService(repo, testBaseURL, zap.NewNop(), nil)

	res, err := svc.ResolveOrCreate(ctx, "https://example.com/hot", nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.ResolveAndVisit(ctx, res.Link.Code)
		require.NoError(t, err)
	}

	const visits = 200
	var wg sync.WaitGroup
	for i := 0; i < visits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ResolveAndVisit(ctx, res.Link.Code)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	link, err := svc.Lookup(ctx, res.Link.Code)
	require.NoError(t, err)
	assert.EqualValues(t, 5+visits, link.Clicks)
}

func TestResolveAndVisit_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockURLRepository(ctrl)
	repo.EXPECT().IncrementClicks(gomock.Any(), "abc1234").Return("", errors.New("timeout"))

	svc := NewURLService(repo, testBaseURL, zap.NewNop(), nil)
	_, err := svc.ResolveAndVisit(context.Background(), "abc1234")

	assert.Equal(t, apperr.Transient, apperr.KindOf(err))
}

func TestListByOwner(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryURLRepository()
	svc := NewURLService(repo, testBaseURL, zap.NewNop(), nil)
	ann := "ann-id"

	for _, u := range []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"} {
		_, err := svc.ResolveOrCreate(ctx, u, &ann)
		require.NoError(t, err)
	}
	_, err := svc.ResolveOrCreate(ctx, "https://example.com/anon", nil)
	require.NoError(t, err)

	links, err := svc.ListByOwner(ctx, ann)
	require.NoError(t, err)
	require.Len(t, links, 3)
	for i, link := range links {
		assert.Equal(t, "https://example.com/"+string(rune('1'+i)), link.LongURL)
	}
}

func TestListByOwner_NilFromStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockURLRepository(ctrl)
	repo.EXPECT().ListByOwner(gomock.Any(), "ann-id").Return(nil, nil)
	repo.EXPECT().ListByOwner(gomock.Any(), "bob-id").Return(nil, errors.New("boom"))

	svc := NewURLService(repo, testBaseURL, zap.NewNop(), nil)

	links, err := svc.ListByOwner(context.Background(), "ann-id")
	require.NoError(t, err)
	assert.NotNil(t, links)
	assert.Empty(t, links)

	_, err = svc.ListByOwner(context.Background(), "bob-id")
	assert.Equal(t, apperr.Transient, apperr.KindOf(err))
}
