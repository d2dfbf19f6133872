// Package field orchestrates the two external entry points of the vault:
// encrypting a sensitive answer into the response table and decrypting it
// back for privileged operators.
package field

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"onboard/internal/access"
	"onboard/internal/audit"
	"onboard/internal/crypto"
	"onboard/internal/platform/metrics"
	"onboard/internal/response"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/sentinel"
)

// EncryptRequest carries one sensitive answer to protect.
type EncryptRequest struct {
	InstanceID string
	FieldKey   string
	Section    string
	Value      string
}

// EncryptResult acknowledges a stored write.
type EncryptResult struct {
	Success   bool `json:"success"`
	Encrypted bool `json:"encrypted"`
}

// DecryptRequest names one stored field.
type DecryptRequest struct {
	InstanceID string
	FieldKey   string
}

// DecryptResult returns the stored value. Encrypted reports whether the
// value lived encrypted at rest (and therefore required privilege to read).
type DecryptResult struct {
	Value     string `json:"value"`
	Encrypted bool   `json:"encrypted"`
}

// Service wires the gate, cipher, store and audit trail into the two
// operations. Each request is independent: a linear guard sequence, then
// success or exactly one typed failure.
type Service struct {
	cipher  *crypto.Cipher
	store   response.Store
	gate    *access.Gate
	audit   *audit.Recorder
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures optional service dependencies.
type Option func(*Service)

// WithMetrics attaches operation counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(cipher *crypto.Cipher, store response.Store, gate *access.Gate, recorder *audit.Recorder, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		cipher: cipher,
		store:  store,
		gate:   gate,
		audit:  recorder,
		logger: logger,
		tracer: otel.Tracer("onboard/field"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EncryptField protects one answer: authorize the write, seal the value,
// replace the row. The audit entry is recorded after the store commit and is
// best-effort.
func (s *Service) EncryptField(ctx context.Context, ident access.Identity, req EncryptRequest) (*EncryptResult, error) {
	ctx, span := s.tracer.Start(ctx, "field.encrypt",
		trace.WithAttributes(attribute.String("field_key", req.FieldKey)))
	defer span.End()

	if err := requireEncryptInputs(req); err != nil {
		return nil, err
	}
	if err := s.gate.AuthorizeWrite(ctx, ident, req.InstanceID); err != nil {
		return nil, err
	}

	blob, err := s.cipher.Encrypt(req.Value)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encryption failed")
	}

	if err := s.store.Upsert(ctx, &response.Field{
		InstanceID: req.InstanceID,
		FieldKey:   req.FieldKey,
		Section:    req.Section,
		Value:      blob,
		Sensitive:  true,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store field")
	}

	s.audit.Record(ctx, audit.Entry{
		InstanceID: req.InstanceID,
		FieldKey:   req.FieldKey,
		Action:     audit.ActionEncrypt,
		UserID:     ident.UserID,
	})
	s.incrementEncrypted()

	return &EncryptResult{Success: true, Encrypted: true}, nil
}

// StoreField writes a non-sensitive answer verbatim. Used by the wizard for
// fields that were never marked sensitive; the cipher is not involved and no
// audit entry is produced.
func (s *Service) StoreField(ctx context.Context, ident access.Identity, req EncryptRequest) (*EncryptResult, error) {
	if err := requireEncryptInputs(req); err != nil {
		return nil, err
	}
	if err := s.gate.AuthorizeWrite(ctx, ident, req.InstanceID); err != nil {
		return nil, err
	}

	if err := s.store.Upsert(ctx, &response.Field{
		InstanceID: req.InstanceID,
		FieldKey:   req.FieldKey,
		Section:    req.Section,
		Value:      req.Value,
		Sensitive:  false,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store field")
	}

	return &EncryptResult{Success: true, Encrypted: false}, nil
}

// DecryptField returns one stored answer. Non-sensitive values pass through
// to any authenticated caller; sensitive values require an administrative
// role and leave exactly one audit entry per successful read.
func (s *Service) DecryptField(ctx context.Context, ident access.Identity, req DecryptRequest) (*DecryptResult, error) {
	ctx, span := s.tracer.Start(ctx, "field.decrypt",
		trace.WithAttributes(attribute.String("field_key", req.FieldKey)))
	defer span.End()

	if req.InstanceID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "onboarding_instance_id is required")
	}
	if req.FieldKey == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "field_key is required")
	}

	stored, err := s.store.Fetch(ctx, req.InstanceID, req.FieldKey)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "field not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch field")
	}

	if !stored.Sensitive {
		return &DecryptResult{Value: stored.Value, Encrypted: false}, nil
	}

	if err := s.gate.AuthorizeDecrypt(ctx, ident); err != nil {
		if dErrors.HasCode(err, dErrors.CodeForbidden) {
			s.incrementDenied()
		}
		return nil, err
	}

	plaintext, err := s.cipher.Decrypt(stored.Value)
	if err != nil {
		// Deliberately generic: tamper, corruption and wrong key are
		// indistinguishable to the caller.
		s.logger.ErrorContext(ctx, "field decryption failed",
			"instance_id", req.InstanceID,
			"field_key", req.FieldKey,
		)
		return nil, dErrors.New(dErrors.CodeInternal, "decryption failed")
	}

	s.audit.Record(ctx, audit.Entry{
		InstanceID: req.InstanceID,
		FieldKey:   req.FieldKey,
		Action:     audit.ActionDecrypt,
		UserID:     ident.UserID,
	})
	s.incrementDecrypted()

	return &DecryptResult{Value: plaintext, Encrypted: true}, nil
}

func requireEncryptInputs(req EncryptRequest) error {
	switch {
	case req.InstanceID == "":
		return dErrors.New(dErrors.CodeBadRequest, "onboarding_instance_id is required")
	case req.FieldKey == "":
		return dErrors.New(dErrors.CodeBadRequest, "field_key is required")
	case req.Section == "":
		return dErrors.New(dErrors.CodeBadRequest, "section is required")
	case req.Value == "":
		return dErrors.New(dErrors.CodeBadRequest, "value is required")
	}
	return nil
}

func (s *Service) incrementEncrypted() {
	if s.metrics != nil {
		s.metrics.IncrementFieldsEncrypted()
	}
}

func (s *Service) incrementDecrypted() {
	if s.metrics != nil {
		s.metrics.IncrementFieldsDecrypted()
	}
}

func (s *Service) incrementDenied() {
	if s.metrics != nil {
		s.metrics.IncrementDecryptsDenied()
	}
}
