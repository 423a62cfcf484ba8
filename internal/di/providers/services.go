package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/sproutlingapp/sproutling-server/internal/access"
	"github.com/sproutlingapp/sproutling-server/internal/auth"
	"github.com/sproutlingapp/sproutling-server/internal/config"
	"github.com/sproutlingapp/sproutling-server/internal/email"
	"github.com/sproutlingapp/sproutling-server/internal/logger"
	"github.com/sproutlingapp/sproutling-server/internal/service"
)

// ProvideEvaluator provides the access-control evaluator.
func ProvideEvaluator(i do.Injector) (*access.Evaluator, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	return access.NewEvaluator(storeHandle.Store), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, log.Logger), nil
}

// ProvideChildService provides the child profile service.
func ProvideChildService(i do.Injector) (*service.ChildService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	evaluator := do.MustInvoke[*access.Evaluator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewChildService(storeHandle.Store, evaluator, log.Logger), nil
}

// ProvideSharingService provides the collaborator management service.
func ProvideSharingService(i do.Injector) (*service.SharingService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	evaluator := do.MustInvoke[*access.Evaluator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSharingService(storeHandle.Store, evaluator, log.Logger), nil
}

// ProvideEmailSender provides the SES invitation email sender.
// Returns nil when no from-address is configured; invitation delivery is
// then skipped and codes travel out of band.
func ProvideEmailSender(i do.Injector) (*email.Sender, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Email.FromAddress == "" {
		log.Info("Email delivery disabled: no from address configured")
		return nil, nil
	}

	sender, err := email.NewSender(context.Background(), cfg.Email, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Email delivery enabled",
		"region", cfg.Email.AWSRegion,
		"from", cfg.Email.FromAddress,
	)
	return sender, nil
}

// ProvideInvitationService provides the caregiver invitation service.
func ProvideInvitationService(i do.Injector) (*service.InvitationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sender := do.MustInvoke[*email.Sender](i)
	log := do.MustInvoke[*logger.Logger](i)
	cfg := do.MustInvoke[*config.Config](i)

	// A nil *email.Sender must stay a nil interface inside the service.
	var emailSender service.EmailSender
	if sender != nil {
		emailSender = sender
	}

	return service.NewInvitationService(storeHandle.Store, emailSender, log.Logger, cfg.Invite), nil
}

// ProvideRecordService provides the care record service.
func ProvideRecordService(i do.Injector) (*service.RecordService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	evaluator := do.MustInvoke[*access.Evaluator](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRecordService(storeHandle.Store, evaluator, sseHandle.Manager, indexHandle.SearchIndex, log.Logger), nil
}
