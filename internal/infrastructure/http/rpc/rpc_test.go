package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/infrastructure/http/middleware"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	"github.com/nourishlab/nourish/internal/infrastructure/security"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/nourishlab/nourish/internal/testutil"
	apperrors "github.com/nourishlab/nourish/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

type echoInput struct {
	Name  string `json:"name" validate:"required,min=2"`
	Count int    `json:"count" validate:"omitempty,min=1,max=5"`
}

type echoOutput struct {
	Greeting string    `json:"greeting"`
	Caller   uuid.UUID `json:"caller,omitempty"`
}

type checker struct {
	ok    bool
	err   error
	calls int
}

func (c *checker) IsAdmin(context.Context, uuid.UUID) (bool, error) {
	c.calls++
	return c.ok, c.err
}

func (c *checker) HasActiveSubscription(context.Context, uuid.UUID) (bool, error) {
	c.calls++
	return c.ok, c.err
}

type RPCTestSuite struct {
	suite.Suite
	server  *httptest.Server
	tokens  *testutil.MockTokenIssuer
	admins  *checker
	subs    *checker
	limiter *security.MemoryLimiter
	metrics *monitoring.Metrics
	userID  uuid.UUID
}

func TestRPCSuite(t *testing.T) {
	suite.Run(t, new(RPCTestSuite))
}

func (s *RPCTestSuite) SetupTest() {
	s.userID = uuid.New()
	s.tokens = new(testutil.MockTokenIssuer)
	s.tokens.On("Verify", mock.Anything, "valid", outbound.TokenAccess).
		Return(&outbound.TokenClaims{UserID: s.userID, Role: "user"}, nil).Maybe()
	s.tokens.On("Verify", mock.Anything, mock.Anything, outbound.TokenAccess).
		Return(nil, security.ErrInvalidToken).Maybe()

	s.admins = &checker{}
	s.subs = &checker{}
	s.limiter = security.NewMemoryLimiter(600, 100)
	s.metrics = monitoring.NewMetrics()

	b := NewBuilder(Deps{
		Logger:        zaptest.NewLogger(s.T()),
		Metrics:       s.metrics,
		Limiter:       s.limiter,
		Sessions:      middleware.NewSessionResolver(s.tokens, "session"),
		Admins:        s.admins,
		Subscriptions: s.subs,
	})

	greet := func(ctx context.Context, in echoInput) (*echoOutput, error) {
		out := &echoOutput{Greeting: "hello " + in.Name}
		if id, ok := middleware.IdentityFrom(ctx); ok {
			out.Caller = id.UserID
		}
		return out, nil
	}

	router := NewRouter("demo").
		Procedure("public", Query(b.Public, greet)).
		Procedure("protected", Query(b.Protected, greet)).
		Procedure("subscribed", Mutation(b.Subscribed, greet)).
		Procedure("admin", Mutation(b.Admin, greet)).
		Procedure("fail", Query(b.Public, func(context.Context, Empty) (*echoOutput, error) {
			return nil, errors.New("disk on fire")
		})).
		Procedure("notFound", Query(b.Public, func(context.Context, Empty) (*echoOutput, error) {
			return nil, apperrors.NewRecipeNotFoundError("x")
		}))

	mux := chi.NewRouter()
	b.Mount(mux, router)
	s.server = httptest.NewServer(mux)
}

func (s *RPCTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *RPCTestSuite) query(proc, input, token string) *http.Response {
	u := s.server.URL + MountPath + "/" + proc
	if input != "" {
		u += "?input=" + url.QueryEscape(input)
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *RPCTestSuite) mutate(proc, body, token string) *http.Response {
	req, err := http.NewRequest(http.MethodPost, s.server.URL+MountPath+"/"+proc, bytes.NewBufferString(body))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: token})
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *RPCTestSuite) decodeData(resp *http.Response) echoOutput {
	defer resp.Body.Close()
	var env struct {
		Result struct {
			Data echoOutput `json:"data"`
		} `json:"result"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&env))
	return env.Result.Data
}

func (s *RPCTestSuite) decodeError(resp *http.Response) apperrors.ErrorDetails {
	defer resp.Body.Close()
	var body apperrors.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	return body.Error
}

func (s *RPCTestSuite) TestPublicQuery() {
	resp := s.query("demo.public", `{"name":"ada"}`, "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.NotEmpty(resp.Header.Get("X-RateLimit-Limit"))

	out := s.decodeData(resp)
	s.Equal("hello ada", out.Greeting)
	s.Equal(uuid.Nil, out.Caller)
}

func (s *RPCTestSuite) TestPublicQuerySeesOptionalIdentity() {
	out := s.decodeData(s.query("demo.public", `{"name":"ada"}`, "valid"))
	s.Equal(s.userID, out.Caller)
}

func (s *RPCTestSuite) TestValidationFailure() {
	resp := s.query("demo.public", `{"name":"a","count":9}`, "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	e := s.decodeError(resp)
	s.Equal(apperrors.CodeValidationFailed, e.Code)
	fields, ok := e.Metadata["validation_errors"].([]interface{})
	s.Require().True(ok)
	s.Len(fields, 2)
	s.Equal("name", fields[0].(map[string]interface{})["field"])
	s.Equal("count", fields[1].(map[string]interface{})["field"])
}

func (s *RPCTestSuite) TestMalformedInput() {
	resp := s.query("demo.public", `{"name":`, "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal(apperrors.CodeBadRequest, s.decodeError(resp).Code)

	resp = s.query("demo.public", `{"name":42}`, "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal(apperrors.CodeValidationFailed, s.decodeError(resp).Code)
}

func (s *RPCTestSuite) TestProtectedRequiresSession() {
	resp := s.query("demo.protected", `{"name":"ada"}`, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal(apperrors.CodeUnauthorized, s.decodeError(resp).Code)

	resp = s.query("demo.protected", `{"name":"ada"}`, "forged")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	out := s.decodeData(s.query("demo.protected", `{"name":"ada"}`, "valid"))
	s.Equal(s.userID, out.Caller)
}

func (s *RPCTestSuite) TestAuthRunsBeforeValidation() {
	resp := s.query("demo.protected", `{"name":""}`, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func (s *RPCTestSuite) TestSubscribedMutation() {
	resp := s.mutate("demo.subscribed", `{"name":"ada"}`, "valid")
	s.Equal(http.StatusPaymentRequired, resp.StatusCode)
	s.Equal(apperrors.CodeSubscriptionRequired, s.decodeError(resp).Code)

	s.subs.ok = true
	resp = s.mutate("demo.subscribed", `{"name":"ada"}`, "valid")
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	s.Equal(2, s.subs.calls)

	// anonymous callers never reach the subscription lookup
	resp = s.mutate("demo.subscribed", `{"name":"ada"}`, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
	s.Equal(2, s.subs.calls)
}

func (s *RPCTestSuite) TestAdminMutation() {
	resp := s.mutate("demo.admin", `{"name":"ada"}`, "valid")
	s.Equal(http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	s.admins.err = errors.New("db down")
	resp = s.mutate("demo.admin", `{"name":"ada"}`, "valid")
	s.Equal(http.StatusInternalServerError, resp.StatusCode)
	s.Equal(apperrors.CodeDatabaseError, s.decodeError(resp).Code)

	s.admins.err = nil
	s.admins.ok = true
	resp = s.mutate("demo.admin", `{"name":"ada"}`, "valid")
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func (s *RPCTestSuite) TestMethodMismatch() {
	resp := s.mutate("demo.public", `{"name":"ada"}`, "")
	s.Equal(http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()
}

func (s *RPCTestSuite) TestErrorsMapToEnvelope() {
	resp := s.query("demo.fail", "", "")
	s.Equal(http.StatusInternalServerError, resp.StatusCode)
	e := s.decodeError(resp)
	s.Equal(apperrors.CodeInternal, e.Code)
	s.NotContains(e.Message, "disk on fire")

	resp = s.query("demo.notFound", "", "")
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal(apperrors.CodeRecipeNotFound, s.decodeError(resp).Code)
}

func (s *RPCTestSuite) TestRateLimitByClient() {
	s.limiter.SetLimits(1, 2)

	for i := 0; i < 2; i++ {
		resp := s.query("demo.public", `{"name":"ada"}`, "")
		s.Equal(http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp := s.query("demo.public", `{"name":"ada"}`, "")
	s.Equal(http.StatusTooManyRequests, resp.StatusCode)
	s.NotEmpty(resp.Header.Get("Retry-After"))
	s.Equal(apperrors.CodeTooManyRequests, s.decodeError(resp).Code)

	// a signed-in caller has a separate bucket
	resp = s.query("demo.public", `{"name":"ada"}`, "valid")
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func (s *RPCTestSuite) TestRouterPaths() {
	r := NewRouter("x").
		Procedure("b", Query(Procedure{}, func(context.Context, Empty) (Empty, error) { return Empty{}, nil })).
		Procedure("a", Mutation(Procedure{}, func(context.Context, Empty) (Empty, error) { return Empty{}, nil }))
	s.Equal([]string{"x.a", "x.b"}, r.Paths())

	s.Panics(func() {
		r.Procedure("a", Query(Procedure{}, func(context.Context, Empty) (Empty, error) { return Empty{}, nil }))
	})
}
