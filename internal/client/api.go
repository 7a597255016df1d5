package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/domain"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/errors"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/validation"
)

// Login exchanges credentials for a token and the identity. Rejected
// credentials yield an AUTHENTICATION_FAILED error carrying the backend
// message.
func (c *Client) Login(ctx context.Context, login, password string) (*domain.LoginResponse, error) {
	var resp domain.LoginResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   domain.LoginRequest{Login: login, Password: password},
	}, &resp)
	if err != nil {
		var apiErr *errors.Error
		if stderrors.As(err, &apiErr) {
			switch apiErr.Code {
			case errors.ErrValidation, errors.ErrAuthorizationExpired, errors.ErrForbidden:
				return nil, errors.New(errors.ErrAuthentication, "credentials rejected").
					WithDetails(apiErr.Details).
					WithStatus(apiErr.Status)
			}
		}
		return nil, err
	}
	return &resp, nil
}

// Profile returns the signed-in account.
func (c *Client) Profile(ctx context.Context) (*domain.Profile, error) {
	var profile domain.Profile
	if err := c.do(ctx, request{method: http.MethodGet, path: "/perfil", authenticated: true}, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile saves the account settings.
func (c *Client) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) error {
	return c.do(ctx, request{method: http.MethodPut, path: "/perfil", body: update, authenticated: true}, nil)
}

// ChangePassword changes the account password.
func (c *Client) ChangePassword(ctx context.Context, change domain.PasswordChange) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/auth/trocar-senha", body: change, authenticated: true}, nil)
}

// UpdateCompany saves the company registration, fiscal settings and
// certificate.
func (c *Client) UpdateCompany(ctx context.Context, settings domain.CompanySettings) error {
	return c.do(ctx, request{method: http.MethodPut, path: "/perfil", body: settings, authenticated: true}, nil)
}

// ListInvoices returns invoices matching filter, newest first as the
// backend orders them.
func (c *Client) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	query := url.Values{}
	if filter.Year != "" {
		query.Set("ano", filter.Year)
	}
	if filter.Month != "" {
		query.Set("mes", filter.Month)
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	invoices := []domain.Invoice{}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/notas", query: query, authenticated: true}, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// IssueInvoice asks the backend to issue an invoice.
func (c *Client) IssueInvoice(ctx context.Context, req domain.IssueInvoiceRequest) (*domain.Invoice, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodPost, path: "/notas", body: req, authenticated: true}, &raw); err != nil {
		return nil, err
	}

	// the answer is informative only; an unexpected shape is not an error
	invoice := &domain.Invoice{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, invoice); err != nil {
			c.logger.Debug("unexpected issue response shape")
			invoice = &domain.Invoice{}
		}
	}
	return invoice, nil
}

// ListClients returns the customers of the company. query filters by name
// or document, ignoring case.
func (c *Client) ListClients(ctx context.Context, query string) ([]domain.Client, error) {
	values := url.Values{}
	if query != "" {
		values.Set("q", query)
	}

	clients := []domain.Client{}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/clientes", query: values, authenticated: true}, &clients); err != nil {
		return nil, err
	}

	// older backends ignore q
	filtered := clients[:0]
	for _, cl := range clients {
		if cl.Matches(query) {
			filtered = append(filtered, cl)
		}
	}
	return filtered, nil
}

// LookupCNPJ fetches public registration data of a CNPJ. Formatting
// characters are ignored; anything but 14 digits is rejected locally.
func (c *Client) LookupCNPJ(ctx context.Context, cnpj string) (*domain.CNPJInfo, error) {
	digits, err := validation.NewValidator().ValidateCNPJ(cnpj)
	if err != nil {
		return nil, err
	}

	var info domain.CNPJInfo
	err = c.do(ctx, request{
		method:        http.MethodGet,
		path:          "/external/cnpj",
		query:         url.Values{"cnpj": {digits}},
		authenticated: true,
	}, &info)
	if err != nil {
		if errors.HasCode(err, errors.ErrNotFound) {
			return nil, errors.New(errors.ErrNotFound, "cnpj not found").
				WithDetails("CNPJ não encontrado na base de dados.")
		}
		return nil, err
	}
	return &info, nil
}

// LinkedCompanies returns the companies the signed-in accountant is linked
// to.
func (c *Client) LinkedCompanies(ctx context.Context) ([]domain.LinkedCompany, error) {
	var items []json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/contador/vinculo", authenticated: true}, &items); err != nil {
		return nil, err
	}

	companies := make([]domain.LinkedCompany, 0, len(items))
	for _, item := range items {
		// a link either nests the company or is the company
		var link struct {
			Company *domain.LinkedCompany `json:"empresa"`
		}
		if err := json.Unmarshal(item, &link); err == nil && link.Company != nil {
			companies = append(companies, *link.Company)
			continue
		}

		var company domain.LinkedCompany
		if err := json.Unmarshal(item, &company); err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "failed to decode linked company")
		}
		companies = append(companies, company)
	}
	return companies, nil
}
