package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// call is one request the fake backend received.
type call struct {
	Method  string
	Path    string
	Query   string
	Company string
	Body    string
}

// fakeAPI imitates the NFSe backend. Tokens are "tok-<login>".
type fakeAPI struct {
	*httptest.Server

	mu      sync.Mutex
	calls   []call
	revoked bool
}

var fakeUsers = map[string]string{
	"ana@x.com":      `{"id":1,"nome":"Ana Souza","email":"ana@x.com","role":"CLIENTE","empresaId":5}`,
	"contador@x.com": `{"id":2,"nome":"Carlos Lima","email":"contador@x.com","role":"CONTADOR"}`,
}

const fakeProfile = `{
  "id": 1, "nome": "Ana Souza", "email": "ana@x.com", "role": "CLIENTE",
  "telefone": "11 99999-0000", "cadastroCompleto": true,
  "documento": "12345678000190", "razaoSocial": "ACME SERVICOS LTDA",
  "cidade": "São Paulo", "uf": "SP", "ambiente": "HOMOLOGACAO",
  "planoDetalhado": {"nome": "Essencial", "status": "ATIVO", "usoEmissoes": 3, "limiteEmissoes": 50}
}`

const fakeInvoices = `{"data": [
  {"id": 11, "createdAt": "2024-03-05T10:00:00Z", "valor": "1500.5", "cliente": {"id": 7, "nome": "Padaria Pão Bom"}, "notas": [{"numero": "123", "status": "CONCLUIDA"}]},
  {"id": 12, "createdAt": "2024-03-06T10:00:00Z", "valor": 80, "status": "ERRO_EMISSAO"}
]}`

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", f.login)
	mux.HandleFunc("GET /api/perfil", f.authed(fakeProfile))
	mux.HandleFunc("PUT /api/perfil", f.authed(`{"ok": true}`))
	mux.HandleFunc("POST /api/auth/trocar-senha", f.authed(`{"ok": true}`))
	mux.HandleFunc("GET /api/notas", f.authed(fakeInvoices))
	mux.HandleFunc("POST /api/notas", f.authed(`{"id": 99, "numero": "124", "status": "AUTORIZADA"}`))
	mux.HandleFunc("GET /api/clientes", f.authed(`[
  {"id": 7, "nome": "Padaria Pão Bom", "documento": "12.345.678/0001-90", "cidade": "Santos", "uf": "SP"},
  {"id": 8, "nome": "Maria Silva", "documento": "123.456.789-00"}
]`))
	mux.HandleFunc("GET /api/contador/vinculo", f.authed(`[
  {"empresa": {"id": 10, "razaoSocial": "ACME SERVICOS LTDA", "documento": "12345678000190"}},
  {"id": 11}
]`))
	mux.HandleFunc("GET /api/external/cnpj", f.authed(`{"razaoSocial": "ACME SERVICOS LTDA", "nomeFantasia": "ACME", "cidade": "Campinas", "uf": "SP", "cnaes": [{"codigo": "6201-5/01", "descricao": "Desenvolvimento de software"}]}`))

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.calls = append(f.calls, call{
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.RawQuery,
			Company: r.Header.Get("x-empresa-id"),
			Body:    string(body),
		})
		f.mu.Unlock()
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login string `json:"login"`
		Senha string `json:"senha"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	user, ok := fakeUsers[req.Login]
	if !ok || req.Senha != "segredo" {
		writeJSON(w, http.StatusUnauthorized, `{"error": "Credenciais inválidas."}`)
		return
	}
	writeJSON(w, http.StatusOK, `{"token": "tok-`+req.Login+`", "user": `+user+`}`)
}

// authed answers body to requests carrying a known token. A company header
// of 666 is refused as not linked.
func (f *fakeAPI) authed(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		revoked := f.revoked
		f.mu.Unlock()

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer tok-")
		if _, ok := fakeUsers[token]; !ok || revoked {
			writeJSON(w, http.StatusUnauthorized, `{"error": "Token inválido."}`)
			return
		}
		if r.Header.Get("x-empresa-id") == "666" {
			writeJSON(w, http.StatusForbidden, `{"error": "Empresa não vinculada."}`)
			return
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func (f *fakeAPI) revoke() {
	f.mu.Lock()
	f.revoked = true
	f.mu.Unlock()
}

// find returns the calls to method and path.
func (f *fakeAPI) find(method, path string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found []call
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			found = append(found, c)
		}
	}
	return found
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
