package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"onboard/internal/access"
	"onboard/internal/audit"
	auditmem "onboard/internal/audit/store/memory"
	"onboard/internal/crypto"
	"onboard/internal/field"
	"onboard/internal/field/handler"
	jwttoken "onboard/internal/jwt_token"
	"onboard/internal/onboarding"
	onboardingstore "onboard/internal/onboarding/store"
	"onboard/internal/response"
	responsestore "onboard/internal/response/store"
	"onboard/pkg/testutil"
)

const (
	testSecret     = "handler-test-encryption-secret"
	testSigningKey = "handler-test-signing-key"
	testInstanceID = "inst-1"
	ownerClientID  = "client-1"
)

type staticDirectory struct {
	roles map[string][]access.Role
}

func (d *staticDirectory) ResolveRoles(_ context.Context, userID string) ([]access.Role, error) {
	return d.roles[userID], nil
}

// HandlerSuite exercises the two endpoints through the full middleware
// chain with real service, cipher and in-memory stores. Only the identity
// provider directory is faked.
type HandlerSuite struct {
	suite.Suite

	router    chi.Router
	responses *responsestore.MemoryStore
	auditLog  *auditmem.InMemoryStore
	jwt       *jwttoken.JWTService

	adminID    uuid.UUID
	ownerID    uuid.UUID
	strangerID uuid.UUID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.adminID = uuid.New()
	s.ownerID = uuid.New()
	s.strangerID = uuid.New()

	directory := &staticDirectory{roles: map[string][]access.Role{
		s.adminID.String():    {access.RoleAdmin},
		s.ownerID.String():    {access.RoleClient},
		s.strangerID.String(): {access.RoleClient},
	}}

	instances := onboardingstore.NewMemory()
	s.Require().NoError(instances.Create(context.Background(), &onboarding.Instance{
		ID:        testInstanceID,
		ClientID:  ownerClientID,
		CreatedAt: time.Now(),
	}))

	cipher, err := crypto.NewCipher(testSecret)
	s.Require().NoError(err)

	s.responses = responsestore.NewMemory()
	s.auditLog = auditmem.NewInMemoryStore()
	recorder := audit.NewRecorder(s.auditLog, logger)

	gate := access.NewGate(directory, instances)
	svc := field.NewService(cipher, s.responses, gate, recorder, logger)

	s.jwt = jwttoken.NewJWTService(testSigningKey, "onboard-test", "onboard-portal")

	h := handler.New(svc, logger, s.jwt)
	router := chi.NewRouter()
	h.Register(router)
	s.router = router
}

func (s *HandlerSuite) tokenFor(userID uuid.UUID, clientID string) string {
	token, err := s.jwt.GenerateAccessToken(userID, clientID, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *HandlerSuite) authedJSONRequest(method, path string, body any, token string) *http.Request {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func encryptBody(value string) map[string]string {
	return map[string]string{
		"onboarding_instance_id": testInstanceID,
		"field_key":              "cpf",
		"value":                  value,
		"section":                "Dados Pessoais",
	}
}

func decryptBody() map[string]string {
	return map[string]string{
		"onboarding_instance_id": testInstanceID,
		"field_key":              "cpf",
	}
}

func (s *HandlerSuite) TestMissingTokenRejected() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/fields/encrypt", encryptBody("123.456.789-00"))

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *HandlerSuite) TestGarbageTokenRejected() {
	req := s.authedJSONRequest(http.MethodPost, "/fields/encrypt", encryptBody("123.456.789-00"), "not-a-jwt")

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *HandlerSuite) TestExpiredTokenRejected() {
	token, err := s.jwt.GenerateAccessToken(s.adminID, "", -time.Minute)
	s.Require().NoError(err)
	req := s.authedJSONRequest(http.MethodPost, "/fields/decrypt", decryptBody(), token)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}

func (s *HandlerSuite) TestOwnerEncryptsSensitiveField() {
	token := s.tokenFor(s.ownerID, ownerClientID)
	req := s.authedJSONRequest(http.MethodPost, "/fields/encrypt", encryptBody("123.456.789-00"), token)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	result := testutil.UnmarshalResponse[field.EncryptResult](s.T(), rr)
	s.True(result.Success)
	s.True(result.Encrypted)

	stored, err := s.responses.Fetch(context.Background(), testInstanceID, "cpf")
	s.Require().NoError(err)
	s.True(stored.Sensitive)
	s.NotEqual("123.456.789-00", stored.Value)
	s.NotContains(stored.Value, "123.456.789")
}

func (s *HandlerSuite) TestAdminDecryptsRoundTrip() {
	ownerToken := s.tokenFor(s.ownerID, ownerClientID)
	encReq := s.authedJSONRequest(http.MethodPost, "/fields/encrypt", encryptBody("123.456.789-00"), ownerToken)
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, encReq), http.StatusOK)

	adminToken := s.tokenFor(s.adminID, "")
	decReq := s.authedJSONRequest(http.MethodPost, "/fields/decrypt", decryptBody(), adminToken)
	rr := testutil.DoRequest(s.router, decReq)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	result := testutil.UnmarshalResponse[field.DecryptResult](s.T(), rr)
	s.Equal("123.456.789-00", result.Value)
	s.True(result.Encrypted)
}

func (s *HandlerSuite) TestOwnerCannotDecrypt() {
	ownerToken := s.tokenFor(s.ownerID, ownerClientID)
	encReq := s.authedJSONRequest(http.MethodPost, "/fields/encrypt", encryptBody("123.456.789-00"), ownerToken)
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, encReq), http.StatusOK)

	decReq := s.authedJSONRequest(http.MethodPost, "/fields/decrypt", decryptBody(), ownerToken)
	rr := testutil.DoRequest(s.router, decReq)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
}

func (s *HandlerSuite) TestStrangerCannotEncrypt() {
	token := s.tokenFor(s.strangerID, "client-other")
	req := s.authedJSONRequest(http.MethodPost, "/fields/encrypt", encryptBody("123.456.789-00"), token)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")

	_, err := s.responses.Fetch(context.Background(), testInstanceID, "cpf")
	s.Error(err, "denied write must not reach the store")
}

func (s *HandlerSuite) TestEncryptMissingValueRejected() {
	token := s.tokenFor(s.ownerID, ownerClientID)
	body := encryptBody("")
	delete(body, "value")
	req := s.authedJSONRequest(http.MethodPost, "/fields/encrypt", body, token)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *HandlerSuite) TestMalformedBodyRejected() {
	token := s.tokenFor(s.ownerID, ownerClientID)
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/fields/encrypt", "{not json")
	req.Header.Set("Authorization", "Bearer "+token)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *HandlerSuite) TestNonJSONContentTypeRejected() {
	token := s.tokenFor(s.ownerID, ownerClientID)
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/fields/encrypt", `{"value":"x"}`)
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Authorization", "Bearer "+token)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusUnsupportedMediaType)
}

func (s *HandlerSuite) TestDecryptUnknownFieldNotFound() {
	token := s.tokenFor(s.adminID, "")
	req := s.authedJSONRequest(http.MethodPost, "/fields/decrypt", decryptBody(), token)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestEncryptUnknownInstanceNotFound() {
	token := s.tokenFor(s.adminID, "")
	body := encryptBody("123.456.789-00")
	body["onboarding_instance_id"] = "inst-missing"
	req := s.authedJSONRequest(http.MethodPost, "/fields/encrypt", body, token)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestCorruptedBlobReturnsOpaqueError() {
	err := s.responses.Upsert(context.Background(), &response.Field{
		InstanceID: testInstanceID,
		FieldKey:   "cpf",
		Section:    "Dados Pessoais",
		Value:      "AAAA-definitely-not-a-valid-blob",
		Sensitive:  true,
		UpdatedAt:  time.Now(),
	})
	s.Require().NoError(err)

	token := s.tokenFor(s.adminID, "")
	req := s.authedJSONRequest(http.MethodPost, "/fields/decrypt", decryptBody(), token)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
	body := string(testutil.ReadBody(s.T(), rr))
	s.NotContains(body, "error_description", "internal failures must not leak detail")
	s.False(strings.Contains(body, "cipher"), "internal failures must not leak detail")
}

func (s *HandlerSuite) TestDecryptIsAudited() {
	ownerToken := s.tokenFor(s.ownerID, ownerClientID)
	encReq := s.authedJSONRequest(http.MethodPost, "/fields/encrypt", encryptBody("123.456.789-00"), ownerToken)
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, encReq), http.StatusOK)

	adminToken := s.tokenFor(s.adminID, "")
	decReq := s.authedJSONRequest(http.MethodPost, "/fields/decrypt", decryptBody(), adminToken)
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, decReq), http.StatusOK)

	entries, err := s.auditLog.ListByInstance(context.Background(), testInstanceID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(audit.ActionEncrypt, entries[0].Action)
	s.Equal(s.ownerID.String(), entries[0].UserID)
	s.Equal(audit.ActionDecrypt, entries[1].Action)
	s.Equal(s.adminID.String(), entries[1].UserID)
}
