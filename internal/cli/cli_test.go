package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t    *testing.T
	api  *fakeAPI
	home string
}

type result struct {
	code   int
	stdout string
	stderr string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	home := t.TempDir()
	t.Setenv("NFSE_HOME", home)
	for _, env := range []string{
		"NFSE_API_URL", "NFSE_API_TIMEOUT", "NFSE_STORAGE_DRIVER", "NFSE_STORAGE_DIR",
		"NFSE_PROFILE", "NFSE_REDIS_ADDR", "NFSE_REDIS_PASSWORD", "NFSE_REDIS_DB",
		"NFSE_POSTGRES_DSN", "NFSE_LOG_LEVEL", "NFSE_ENVIRONMENT", "NFSE_OUTPUT",
		"NFSE_METRICS_ADDR", "NFSE_PASSWORD",
	} {
		t.Setenv(env, "")
	}
	t.Setenv("NO_COLOR", "1")
	return &harness{t: t, api: newFakeAPI(t), home: home}
}

// run executes one command line, like a fresh process.
func (h *harness) run(stdin string, args ...string) result {
	h.t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp("1.0.0-test", strings.NewReader(stdin), &out, &errOut)

	full := append([]string{"--api-url", h.api.URL + "/api"}, args...)
	code := app.Run(context.Background(), full)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func (h *harness) login(user string) {
	h.t.Helper()
	res := h.run("", "login", user, "--senha", "segredo")
	require.Equal(h.t, ExitOK, res.code, res.stderr)
}

func TestLogin_ClientReachesMainArea(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "login", "  ANA@x.com ", "--senha", " segredo ")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Bem-vindo, Ana!")
	assert.Contains(t, res.stderr, "Sessão ativa como Ana")

	logins := h.api.find(http.MethodPost, "/api/auth/login")
	require.Len(t, logins, 1)
	assert.JSONEq(t, `{"login":"ana@x.com","senha":"segredo"}`, logins[0].Body)

	// a later process restores the session from disk
	res = h.run("", "dashboard")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Olá, Ana!")
	assert.Contains(t, res.stdout, "ACME SERVICOS LTDA")
	assert.Contains(t, res.stdout, "3/50")
	assert.Contains(t, res.stdout, "Padaria Pão Bom")
	assert.Contains(t, res.stdout, "R$ 1.500,50")
	assert.Contains(t, res.stdout, "AUTORIZADA")

	notas := h.api.find(http.MethodGet, "/api/notas")
	require.NotEmpty(t, notas)
	assert.Equal(t, "limit=3", notas[0].Query)
	assert.Empty(t, notas[0].Company)

	_, err := os.Stat(filepath.Join(h.home, "session.json"))
	assert.NoError(t, err)
}

func TestLogin_PromptsForMissingCredentials(t *testing.T) {
	h := newHarness(t)

	res := h.run("ana@x.com\nsegredo\n", "login")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stderr, "Login (e-mail ou CPF): ")
	assert.Contains(t, res.stderr, "Senha: ")
	assert.Contains(t, res.stdout, "Bem-vindo, Ana!")
}

func TestLogin_Rejected(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "login", "ana@x.com", "--senha", "errada")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "Erro: Credenciais inválidas.")

	res = h.run("", "status")
	require.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "desconectado")
}

func TestLogin_EmptyFields(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "login", "   ", "--senha", "x")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "Preencha todos os campos.")
	assert.Zero(t, h.api.count())
}

func TestLogin_WhileSignedInRedirectsToMain(t *testing.T) {
	h := newHarness(t)
	h.login("ana@x.com")

	res := h.run("", "login", "ana@x.com", "--senha", "segredo")
	assert.Equal(t, ExitRedirect, res.code)
	assert.Contains(t, res.stderr, "Sessão ativa como Ana")
	assert.Len(t, h.api.find(http.MethodPost, "/api/auth/login"), 1)
}

func TestGuard_SignedOutIsSentToLogin(t *testing.T) {
	h := newHarness(t)

	for _, args := range [][]string{
		{"dashboard"},
		{"notas", "listar"},
		{"empresa", "listar"},
		{"perfil"},
	} {
		res := h.run("", args...)
		assert.Equal(t, ExitRedirect, res.code, args)
		assert.Contains(t, res.stderr, "Você não está conectado. Use 'nfse login'.", args)
	}
	assert.Zero(t, h.api.count())
}

func TestAccountant_CompanySelectionFlow(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "login", "contador@x.com", "--senha", "segredo")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stderr, "Selecione uma empresa")

	res = h.run("", "dashboard")
	assert.Equal(t, ExitRedirect, res.code)
	assert.Contains(t, res.stderr, "Selecione uma empresa")

	res = h.run("", "empresa", "listar")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "ACME SERVICOS LTDA")
	assert.Contains(t, res.stdout, "12.345.678/0001-90")
	assert.Contains(t, res.stdout, "Empresa Sem Nome")
	assert.Contains(t, res.stdout, "Não informado")

	res = h.run("", "empresa", "selecionar", "10")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Empresa 10 selecionada.")

	res = h.run("", "dashboard")
	require.Equal(t, ExitOK, res.code, res.stderr)
	notas := h.api.find(http.MethodGet, "/api/notas")
	require.NotEmpty(t, notas)
	assert.Equal(t, "10", notas[len(notas)-1].Company)

	// selection is done, so the selection area sends the user on
	res = h.run("", "empresa", "listar")
	assert.Equal(t, ExitRedirect, res.code)

	res = h.run("", "empresa", "trocar")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stderr, "Selecione uma empresa")

	res = h.run("", "dashboard")
	assert.Equal(t, ExitRedirect, res.code)
}

func TestAccountant_RejectedCompanyIsDropped(t *testing.T) {
	h := newHarness(t)
	h.login("contador@x.com")
	require.Equal(t, ExitOK, h.run("", "empresa", "selecionar", "666").code)

	res := h.run("", "perfil")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "Empresa não vinculada.")
	assert.Contains(t, res.stderr, "Selecione uma empresa")

	res = h.run("", "status")
	require.Equal(t, ExitOK, res.code)
	assert.NotContains(t, res.stdout, "desconectado")
	assert.NotContains(t, res.stdout, "666")
}

func TestClient_CannotSelectCompany(t *testing.T) {
	h := newHarness(t)
	h.login("ana@x.com")

	res := h.run("", "empresa", "selecionar", "10")
	assert.Equal(t, ExitRedirect, res.code)

	res = h.run("", "empresa", "trocar")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "Apenas contadores selecionam empresas.")
}

func TestUnauthorized_EndsSession(t *testing.T) {
	h := newHarness(t)
	h.login("ana@x.com")
	h.api.revoke()

	res := h.run("", "perfil")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "Sua sessão expirou. Entre novamente.")
	assert.Contains(t, res.stderr, "Você não está conectado. Use 'nfse login'.")

	res = h.run("", "dashboard")
	assert.Equal(t, ExitRedirect, res.code)

	_, err := os.Stat(filepath.Join(h.home, "session.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login("ana@x.com")

	res := h.run("", "logout")
	require.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "Sessão encerrada.")

	// idempotent
	require.Equal(t, ExitOK, h.run("", "logout").code)

	res = h.run("", "perfil")
	assert.Equal(t, ExitRedirect, res.code)
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	h.login("ana@x.com")

	res := h.run("", "status", "--check")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Ana Souza")
	assert.Contains(t, res.stdout, "Cliente")
	assert.Contains(t, res.stdout, "file")
	assert.Contains(t, res.stdout, "Armazenamento acessível:")
	assert.Contains(t, res.stdout, "API acessível:")
}

func TestJSONOutput(t *testing.T) {
	h := newHarness(t)
	h.login("ana@x.com")

	res := h.run("", "-o", "json", "perfil")
	require.Equal(t, ExitOK, res.code, res.stderr)

	var env struct {
		Success bool `json:"success"`
		Data    struct {
			Name string `json:"nome"`
		} `json:"data"`
		Metadata struct {
			Command string `json:"command"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "Ana Souza", env.Data.Name)
	assert.Equal(t, "nfse perfil", env.Metadata.Command)
}

func TestJSONOutput_Redirect(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "-o", "json", "dashboard")
	assert.Equal(t, ExitRedirect, res.code)

	var env struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "REDIRECT", env.Error.Code)
	assert.Contains(t, env.Error.Message, "nfse login")
}

func TestJSONOutput_Failure(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "-o", "json", "login", "ana@x.com", "--senha", "errada")
	assert.Equal(t, ExitError, res.code)

	var env struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "AUTHENTICATION_FAILED", env.Error.Code)
	assert.Equal(t, "Credenciais inválidas.", env.Error.Message)
}

func TestInvoices_ListWithFilters(t *testing.T) {
	h := newHarness(t)
	h.login("ana@x.com")

	res := h.run("", "notas", "listar", "--ano", "2024", "--mes", "3", "--busca", "pão")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "05/03/2024")
	assert.Contains(t, res.stdout, "Cliente Final")
	assert.Contains(t, res.stdout, "ERRO")
	assert.Contains(t, res.stdout, "R$ 1.580,50")

	notas := h.api.find(http.MethodGet, "/api/notas")
	require.Len(t, notas, 1)
	assert.Contains(t, notas[0].Query, "ano=2024")
	assert.Contains(t, notas[0].Query, "mes=03")
	assert.Contains(t, notas[0].Query, "search=p%C3%A3o")

	res = h.run("", "notas", "listar", "--mes", "13")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "Mês deve estar entre 01 e 12.")
}

func TestInvoices_Issue(t *testing.T) {
	h := newHarness(t)
	h.login("ana@x.com")

	res := h.run("", "notas", "emitir", "--cliente", "7", "--descricao", "Consultoria", "--valor", "1.500,50")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Nota Fiscal 124 emitida com sucesso.")

	issued := h.api.find(http.MethodPost, "/api/notas")
	require.Len(t, issued, 1)
	assert.JSONEq(t, `{"clienteId":"7","servicoDescricao":"Consultoria","valor":1500.5}`, issued[0].Body)

	res = h.run("", "notas", "emitir", "--descricao", "Consultoria", "--valor", "10")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "cliente é obrigatório")

	res = h.run("", "notas", "emitir", "--cliente", "7", "--descricao", "x", "--valor", "abc")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "Valor inválido")
	assert.Len(t, h.api.find(http.MethodPost, "/api/notas"), 1)
}

func TestClients(t *testing.T) {
	h := newHarness(t)
	h.login("ana@x.com")

	res := h.run("", "clientes", "maria")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Maria Silva")
	assert.Contains(t, res.stdout, "PF")
	assert.NotContains(t, res.stdout, "Padaria")

	res = h.run("", "clientes", "inexistente")
	require.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "Nenhum cliente encontrado.")
}

func TestProfileEdit(t *testing.T) {
	h := newHarness(t)
	h.login("ana@x.com")

	res := h.run("", "perfil", "editar", "--cargo", "Sócia", "--senha-atual", "segredo")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Perfil atualizado com sucesso!")
	assert.Contains(t, res.stderr, "Senha não alterada")
	assert.Empty(t, h.api.find(http.MethodPost, "/api/auth/trocar-senha"))

	updates := h.api.find(http.MethodPut, "/api/perfil")
	require.Len(t, updates, 1)
	assert.JSONEq(t, `{"nome":"Ana Souza","telefone":"11 99999-0000","cargo":"Sócia"}`, updates[0].Body)

	res = h.run("", "perfil", "editar", "--senha-atual", "segredo", "--nova-senha", "novo")
	require.Equal(t, ExitOK, res.code, res.stderr)
	changes := h.api.find(http.MethodPost, "/api/auth/trocar-senha")
	require.Len(t, changes, 1)
	assert.JSONEq(t, `{"senhaAtual":"segredo","novaSenha":"novo"}`, changes[0].Body)

	res = h.run("", "perfil", "editar", "--nome", "  ")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "O nome não pode ficar vazio.")
}

func TestCompanyConfig_Show(t *testing.T) {
	h := newHarness(t)
	h.login("ana@x.com")

	res := h.run("", "empresa", "config")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "12.345.678/0001-90")
	assert.Contains(t, res.stdout, "São Paulo/SP")
	assert.Contains(t, res.stdout, "não instalado")
	assert.Empty(t, h.api.find(http.MethodPut, "/api/perfil"))
}

func TestCompanyConfig_LookupAndCertificate(t *testing.T) {
	h := newHarness(t)
	h.login("ana@x.com")

	cert := filepath.Join(t.TempDir(), "empresa.PFX")
	require.NoError(t, os.WriteFile(cert, []byte("pkcs12"), 0600))

	res := h.run("",
		"empresa", "config",
		"--cnpj", "98.765.432/0001-10",
		"--buscar-cnpj",
		"--cidade", "Jundiaí",
		"--certificado", cert,
		"--senha-certificado", "1234",
	)
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Configurações da empresa atualizadas!")

	lookups := h.api.find(http.MethodGet, "/api/external/cnpj")
	require.Len(t, lookups, 1)
	assert.Equal(t, "cnpj=98765432000110", lookups[0].Query)

	updates := h.api.find(http.MethodPut, "/api/perfil")
	require.Len(t, updates, 1)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(updates[0].Body), &body))
	assert.Equal(t, "98765432000110", body["documento"])
	assert.Equal(t, "ACME", body["nomeFantasia"])
	assert.Equal(t, "Jundiaí", body["cidade"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("pkcs12")), body["certificadoArquivo"])
	assert.Equal(t, "1234", body["certificadoSenha"])
}

func TestCompanyConfig_Rejections(t *testing.T) {
	h := newHarness(t)
	h.login("ana@x.com")

	txt := filepath.Join(t.TempDir(), "cert.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0600))

	res := h.run("", "empresa", "config", "--certificado", txt, "--senha-certificado", "1")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, ".pfx ou .p12")

	res = h.run("", "empresa", "config", "--cnpj", "123", "--buscar-cnpj")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "Digite um CNPJ válido com 14 números.")

	res = h.run("", "empresa", "config", "--certificado", "a.pfx", "--remover-certificado")
	assert.Equal(t, ExitError, res.code)

	assert.Empty(t, h.api.find(http.MethodPut, "/api/perfil"))
	assert.Empty(t, h.api.find(http.MethodGet, "/api/external/cnpj"))
}

func TestCNPJLookup(t *testing.T) {
	h := newHarness(t)
	h.login("ana@x.com")

	res := h.run("", "cnpj", "12.345.678/0001-90")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "ACME SERVICOS LTDA")
	assert.Contains(t, res.stdout, "Campinas/SP")
	assert.Contains(t, res.stdout, "6201-5/01 Desenvolvimento de software")
}

func TestConfigCommands(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "config", "path")
	require.Equal(t, ExitOK, res.code)
	assert.Equal(t, filepath.Join(h.home, "config.yaml"), strings.TrimSpace(res.stdout))

	res = h.run("", "config", "set", "api.timeout", "1m")
	require.Equal(t, ExitOK, res.code, res.stderr)

	res = h.run("", "config", "set", "output.format", "xml")
	assert.Equal(t, ExitError, res.code)

	res = h.run("", "config", "set", "nao.existe", "1")
	assert.Equal(t, ExitError, res.code)

	res = h.run("", "config", "show")
	require.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "api.timeout:")
	assert.Contains(t, res.stdout, "60")

	res = h.run("", "config", "init")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "--force")
}

func TestMemoryStorageDoesNotPersist(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "--storage", "memory", "login", "ana@x.com", "--senha", "segredo")
	require.Equal(t, ExitOK, res.code, res.stderr)

	res = h.run("", "--storage", "memory", "dashboard")
	assert.Equal(t, ExitRedirect, res.code)
}

func TestVersion(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "version")
	require.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "1.0.0-test")
}
