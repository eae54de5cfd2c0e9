package wiki

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	wikiSvc "wikitree/internal/domain/services/wiki"
	"wikitree/internal/pagepath"
)

const MaxShareLinkDescriptionLength = 100

var (
	grantRule = validation.In(
		wiki.GrantPublic, wiki.GrantRestricted, wiki.GrantSpecified, wiki.GrantOwner, wiki.GrantUserGroup,
	).Error("unknown grant")
	formatRule = validation.In(wiki.FormatMarkdown, wiki.FormatHTML, wiki.FormatText).Error("unsupported format")
)

// invalid turns an ozzo error into a domain validation error.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return &domain.ValidationError{Message: err.Error()}
}

func validateCreateRequest(req *wikiSvc.CreatePageRequest) error {
	return invalid(validation.ValidateStruct(req,
		validation.Field(&req.Path, validation.Required, validation.Length(1, pagepath.MaxPathLength)),
		validation.Field(&req.Format, formatRule),
		validation.Field(&req.Grant, grantRule),
	))
}

func validateUpdateRequest(req *wikiSvc.UpdatePageRequest) error {
	return invalid(validation.ValidateStruct(req,
		validation.Field(&req.Format, formatRule),
		validation.Field(&req.Grant, grantRule),
	))
}

func validatePath(p string) error {
	return invalid(validation.Validate(p, validation.Required, validation.Length(1, pagepath.MaxPathLength)))
}

func validateShareLinkRequest(req *wikiSvc.CreateShareLinkRequest) error {
	return invalid(validation.ValidateStruct(req,
		validation.Field(&req.Description, validation.Length(0, MaxShareLinkDescriptionLength)),
	))
}

func validateGroupAction(action wikiSvc.GroupPageAction, transferTo string) error {
	return invalid(validation.Errors{
		"action": validation.Validate(action,
			validation.Required,
			validation.In(wikiSvc.GroupPagePublicize, wikiSvc.GroupPageDelete, wikiSvc.GroupPageTransfer),
		),
		"transferTo": validation.Validate(transferTo,
			validation.When(action == wikiSvc.GroupPageTransfer, validation.Required),
		),
	}.Filter())
}
