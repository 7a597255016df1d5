package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/domain"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/errors"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/metrics"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/mocks"
)

// recorded is what the fake backend saw.
type recorded struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
}

func (r *recorded) add(req *http.Request, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	r.bodies = append(r.bodies, body)
}

func (r *recorded) last() (*http.Request, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.requests)
	return r.requests[n-1], r.bodies[n-1]
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.add(r.Clone(context.Background()), string(body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func newTestClient(t *testing.T, srv *httptest.Server, session Session) *Client {
	t.Helper()
	c, err := New(srv.URL+"/api", WithSession(session), WithVersion("1.2.3"))
	require.NoError(t, err)
	c.newID = func() string { return "req-1" }
	return c
}

func signedInSession(companyID string) *mocks.MockSession {
	s := &mocks.MockSession{}
	s.On("Credentials").Return("tok-1", companyID)
	return s
}

func TestNew(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())

	c, err = New("api.example.com/v1/")
	require.NoError(t, err)
	assert.Equal(t, "http://api.example.com/v1", c.BaseURL())

	_, err = New("http://[::1")
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK,
		`{"token":"tok-1","user":{"id":5,"nome":"Ana","email":"a@b.c","role":"CONTADOR"}}`)
	c := newTestClient(t, srv, nil)

	resp, err := c.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", resp.Token)
	assert.Equal(t, domain.ID("5"), resp.User.ID)
	assert.Equal(t, domain.RoleAccountant, resp.User.Role)

	req, body := rec.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/auth/login", req.URL.Path)
	assert.JSONEq(t, `{"login":"a@b.c","senha":"pw"}`, body)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "nfse-cli/1.2.3", req.Header.Get("User-Agent"))
	assert.Equal(t, "req-1", req.Header.Get("X-Request-ID"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestLogin_Rejected(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden} {
		srv, _ := newServer(t, status, `{"error":"Senha incorreta."}`)
		c := newTestClient(t, srv, nil)

		_, err := c.Login(context.Background(), "a", "b")
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrAuthentication), "status %d", status)

		var appErr *errors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "Senha incorreta.", appErr.GetUserMessage())
		assert.Equal(t, status, appErr.Status)
	}
}

func TestLogin_RejectedWithoutMessage(t *testing.T) {
	srv, _ := newServer(t, http.StatusUnauthorized, ``)
	c := newTestClient(t, srv, nil)

	_, err := c.Login(context.Background(), "a", "b")
	var appErr *errors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Verifique suas credenciais.", appErr.GetUserMessage())
}

func TestLogin_WrongBaseURL(t *testing.T) {
	srv, _ := newServer(t, http.StatusNotFound, `Cannot POST /auth/login`)
	c := newTestClient(t, srv, nil)

	_, err := c.Login(context.Background(), "a", "b")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrNotFound))
	assert.False(t, errors.HasCode(err, errors.ErrAuthentication))
}

func TestLogin_ServerError(t *testing.T) {
	srv, _ := newServer(t, http.StatusInternalServerError, `<html>boom</html>`)
	c := newTestClient(t, srv, nil)

	_, err := c.Login(context.Background(), "a", "b")
	assert.True(t, errors.HasCode(err, errors.ErrInternal))
}

func TestNetworkError(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv, signedInSession(""))
	srv.Close()

	_, err := c.Profile(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrNetwork))
	assert.Error(t, c.Ping(context.Background()))
}

func TestAuthenticatedHeaders(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"id":1,"nome":"Ana"}`)
	session := signedInSession("co-1")
	c := newTestClient(t, srv, session)

	profile, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ana", profile.Name)

	req, _ := rec.last()
	assert.Equal(t, "Bearer tok-1", req.Header.Get("Authorization"))
	assert.Equal(t, "co-1", req.Header.Get(HeaderCompany))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
}

func TestAuthenticatedHeaders_NoCompany(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"data":{"id":1}}`)
	c := newTestClient(t, srv, signedInSession(""))

	_, err := c.Profile(context.Background())
	require.NoError(t, err)

	req, _ := rec.last()
	_, present := req.Header[http.CanonicalHeaderKey(HeaderCompany)]
	assert.False(t, present)
}

func TestUnauthorizedSignsOut(t *testing.T) {
	srv, _ := newServer(t, http.StatusUnauthorized, `{"error":"Token inválido"}`)
	session := signedInSession("")
	session.On("HandleUnauthorized", mock.Anything).Once()
	c := newTestClient(t, srv, session)

	_, err := c.Profile(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrAuthorizationExpired))
	session.AssertExpectations(t)
}

func TestForbiddenDropsCompany(t *testing.T) {
	srv, _ := newServer(t, http.StatusForbidden, `{"error":"Empresa não vinculada"}`)
	session := signedInSession("co-9")
	session.On("HandleCompanyRejected", mock.Anything).Once()
	c := newTestClient(t, srv, session)

	_, err := c.ListInvoices(context.Background(), domain.InvoiceFilter{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrForbidden))

	var appErr *errors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Empresa não vinculada", appErr.GetUserMessage())
	session.AssertExpectations(t)
}

func TestForbiddenWithoutCompany(t *testing.T) {
	srv, _ := newServer(t, http.StatusForbidden, `{"error":"nope"}`)
	session := signedInSession("")
	c := newTestClient(t, srv, session)

	_, err := c.Profile(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrForbidden))
	session.AssertNotCalled(t, "HandleCompanyRejected", mock.Anything)
}

func TestListInvoices(t *testing.T) {
	body := `{"data":[
		{"id":"n1","createdAt":"2024-03-05T10:00:00Z","valor":"150.5","cliente":{"nome":"Padaria"},"notas":[{"numero":"12","status":"CONCLUIDA"}]},
		{"id":2,"createdAt":"2024-03-04","valor":99,"numero":"11","status":"ERRO_EMISSAO"}
	]}`
	srv, rec := newServer(t, http.StatusOK, body)
	c := newTestClient(t, srv, signedInSession(""))

	invoices, err := c.ListInvoices(context.Background(), domain.InvoiceFilter{
		Year: "2024", Month: "03", Search: "pad", Limit: 3,
	})
	require.NoError(t, err)
	require.Len(t, invoices, 2)

	assert.Equal(t, domain.Amount(150.5), invoices[0].Value)
	assert.Equal(t, "12", invoices[0].Document().Number)
	assert.Equal(t, "Padaria", invoices[0].ClientName())
	assert.Equal(t, "ERRO_EMISSAO", invoices[1].Document().Status)
	assert.Equal(t, "Cliente Final", invoices[1].ClientName())

	req, _ := rec.last()
	assert.Equal(t, "/api/notas", req.URL.Path)
	assert.Equal(t, "2024", req.URL.Query().Get("ano"))
	assert.Equal(t, "03", req.URL.Query().Get("mes"))
	assert.Equal(t, "pad", req.URL.Query().Get("search"))
	assert.Equal(t, "3", req.URL.Query().Get("limit"))
}

func TestListInvoices_BareArray(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `[{"id":1,"valor":10}]`)
	c := newTestClient(t, srv, signedInSession(""))

	invoices, err := c.ListInvoices(context.Background(), domain.InvoiceFilter{})
	require.NoError(t, err)
	assert.Len(t, invoices, 1)

	req, _ := rec.last()
	assert.Empty(t, req.URL.RawQuery)
}

func TestIssueInvoice(t *testing.T) {
	srv, rec := newServer(t, http.StatusCreated, `{"id":"v1","valor":100.5,"status":"PROCESSANDO"}`)
	c := newTestClient(t, srv, signedInSession("co-1"))

	invoice, err := c.IssueInvoice(context.Background(), domain.IssueInvoiceRequest{
		ClientID: "c1", Description: "Consultoria", Value: 100.5,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ID("v1"), invoice.ID)

	req, body := rec.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.JSONEq(t, `{"clienteId":"c1","servicoDescricao":"Consultoria","valor":100.5}`, body)
}

func TestIssueInvoice_UnexpectedShape(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `"ok"`)
	c := newTestClient(t, srv, signedInSession(""))

	invoice, err := c.IssueInvoice(context.Background(), domain.IssueInvoiceRequest{})
	require.NoError(t, err)
	assert.NotNil(t, invoice)
}

func TestIssueInvoice_BackendMessage(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadRequest, `{"message":"Limite do plano atingido"}`)
	c := newTestClient(t, srv, signedInSession(""))

	_, err := c.IssueInvoice(context.Background(), domain.IssueInvoiceRequest{})
	var appErr *errors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrValidation, appErr.Code)
	assert.Equal(t, "Limite do plano atingido", appErr.GetUserMessage())
}

func TestListClients(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `[
		{"id":1,"nome":"Padaria Pão Quente","documento":"12.345.678/0001-95"},
		{"id":2,"razaoSocial":"Mercado Central LTDA","documento":"98.765.432/0001-10"},
		{"id":3,"nome":"João","documento":"123.456.789-09"}
	]`)
	c := newTestClient(t, srv, signedInSession(""))

	clients, err := c.ListClients(context.Background(), "MERCADO")
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Mercado Central LTDA", clients[0].DisplayName())

	req, _ := rec.last()
	assert.Equal(t, "MERCADO", req.URL.Query().Get("q"))

	clients, err = c.ListClients(context.Background(), "123.456")
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.False(t, clients[0].IsCompany())

	clients, err = c.ListClients(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, clients, 3)
}

func TestLookupCNPJ(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"razaoSocial":"ACME LTDA","uf":"SP","cnaes":[{"codigo":"6201","descricao":"Software"}]}`)
	c := newTestClient(t, srv, signedInSession(""))

	info, err := c.LookupCNPJ(context.Background(), "12.345.678/0001-95")
	require.NoError(t, err)
	assert.Equal(t, "ACME LTDA", info.TradeName())
	assert.Len(t, info.CNAEs, 1)

	req, _ := rec.last()
	assert.Equal(t, "/api/external/cnpj", req.URL.Path)
	assert.Equal(t, "12345678000195", req.URL.Query().Get("cnpj"))
}

func TestLookupCNPJ_Invalid(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv, signedInSession(""))

	_, err := c.LookupCNPJ(context.Background(), "123")
	assert.True(t, errors.HasCode(err, errors.ErrValidation))
	assert.Empty(t, rec.requests)
}

func TestLookupCNPJ_NotFound(t *testing.T) {
	srv, _ := newServer(t, http.StatusNotFound, `{"error":"not found"}`)
	c := newTestClient(t, srv, signedInSession(""))

	_, err := c.LookupCNPJ(context.Background(), "12345678000195")
	var appErr *errors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CNPJ não encontrado na base de dados.", appErr.GetUserMessage())
}

func TestLinkedCompanies(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `[
		{"id":10,"empresa":{"id":"e1","razaoSocial":"Alfa","documento":"11"}},
		{"id":"e2","razaoSocial":"Beta","nomeFantasia":"B"}
	]`)
	c := newTestClient(t, srv, signedInSession(""))

	companies, err := c.LinkedCompanies(context.Background())
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, domain.ID("e1"), companies[0].ID)
	assert.Equal(t, "Alfa", companies[0].RazaoSocial)
	assert.Equal(t, domain.ID("e2"), companies[1].ID)
	assert.Equal(t, "B", companies[1].NomeFantasia)
}

func TestUpdateCompany(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv, signedInSession(""))

	err := c.UpdateCompany(context.Background(), domain.CompanySettings{
		Document:            "12345678000195",
		RazaoSocial:         "ACME",
		Environment:         domain.EnvHomologation,
		CNAEs:               []domain.CNAE{},
		CertificateFile:     "QUJD",
		CertificatePassword: "s3nha",
	})
	require.NoError(t, err)

	req, body := rec.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/api/perfil", req.URL.Path)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &sent))
	assert.Equal(t, "QUJD", sent["certificadoArquivo"])
	assert.Equal(t, "s3nha", sent["certificadoSenha"])
	_, hasDelete := sent["deletarCertificado"]
	assert.False(t, hasDelete)
}

func TestUpdateProfileAndPassword(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, ``)
	c := newTestClient(t, srv, signedInSession(""))
	ctx := context.Background()

	require.NoError(t, c.UpdateProfile(ctx, domain.ProfileUpdate{Name: "Ana", Phone: "1199"}))
	_, body := rec.last()
	assert.JSONEq(t, `{"nome":"Ana","telefone":"1199","cargo":""}`, body)

	require.NoError(t, c.ChangePassword(ctx, domain.PasswordChange{Current: "a", New: "b"}))
	req, body := rec.last()
	assert.Equal(t, "/api/auth/trocar-senha", req.URL.Path)
	assert.JSONEq(t, `{"senhaAtual":"a","novaSenha":"b"}`, body)
}

func TestMetricsTransport(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{}`)
	m := metrics.NewMetrics("nfse_test")

	c, err := New(srv.URL, WithMetrics(m), WithTimeout(5*time.Second), WithSession(signedInSession("")))
	require.NoError(t, err)

	_, err = c.Profile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCount.WithLabelValues("GET", "/perfil", "200")))
}

func TestPing(t *testing.T) {
	srv, _ := newServer(t, http.StatusNotFound, ``)
	c := newTestClient(t, srv, nil)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestDecodeData(t *testing.T) {
	var out []int
	require.NoError(t, decodeData([]byte(`{"data":[1,2]}`), &out))
	assert.Equal(t, []int{1, 2}, out)

	out = nil
	require.NoError(t, decodeData([]byte(`[3]`), &out))
	assert.Equal(t, []int{3}, out)

	var obj map[string]interface{}
	require.NoError(t, decodeData([]byte(`{"data":null,"id":1}`), &obj))
	assert.Equal(t, float64(1), obj["id"])

	require.NoError(t, decodeData([]byte("  "), &obj))
}

func TestExtractError(t *testing.T) {
	assert.Equal(t, "a", extractError(strings.NewReader(`{"error":"a","message":"b"}`)))
	assert.Equal(t, "b", extractError(strings.NewReader(`{"message":"b"}`)))
	assert.Equal(t, "b", extractError(strings.NewReader(`{"error":{"x":1},"message":"b"}`)))
	assert.Equal(t, "plain", extractError(strings.NewReader(`plain`)))
	assert.Equal(t, "", extractError(strings.NewReader(`<html></html>`)))
	assert.Equal(t, "", extractError(strings.NewReader(``)))
}
