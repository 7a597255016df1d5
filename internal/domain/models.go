package domain

import "strings"

// CNAE is an economic activity attached to a company.
type CNAE struct {
	Code        string `json:"codigo" yaml:"codigo"`
	Description string `json:"descricao" yaml:"descricao"`
	Primary     bool   `json:"principal,omitempty" yaml:"principal,omitempty"`
}

// Plan describes the subscription of the signed-in account.
type Plan struct {
	Name          string `json:"nome" yaml:"nome"`
	Status        string `json:"status" yaml:"status"`
	IssuedCount   int    `json:"usoEmissoes" yaml:"usoEmissoes"`
	IssuanceLimit int    `json:"limiteEmissoes" yaml:"limiteEmissoes"`
	EndsAt        string `json:"dataFim,omitempty" yaml:"dataFim,omitempty"`
}

// Unlimited reports whether the plan has no issuance limit.
func (p *Plan) Unlimited() bool {
	return p != nil && p.IssuanceLimit == 0
}

// CompanyRef is the nested company some payloads carry.
type CompanyRef struct {
	ID          ID     `json:"id" yaml:"id"`
	RazaoSocial string `json:"razaoSocial" yaml:"razaoSocial"`
}

// Profile is the account returned by GET /perfil. For client accounts the
// company registration lives on the same object.
type Profile struct {
	ID       ID     `json:"id" yaml:"id"`
	Name     string `json:"nome" yaml:"nome"`
	Email    string `json:"email" yaml:"email"`
	Role     Role   `json:"role" yaml:"role"`
	Phone    string `json:"telefone,omitempty" yaml:"telefone,omitempty"`
	Position string `json:"cargo,omitempty" yaml:"cargo,omitempty"`
	CPF      string `json:"cpf,omitempty" yaml:"cpf,omitempty"`

	Complete          bool        `json:"cadastroCompleto" yaml:"cadastroCompleto"`
	Document          string      `json:"documento,omitempty" yaml:"documento,omitempty"`
	RazaoSocial       string      `json:"razaoSocial,omitempty" yaml:"razaoSocial,omitempty"`
	NomeFantasia      string      `json:"nomeFantasia,omitempty" yaml:"nomeFantasia,omitempty"`
	CEP               string      `json:"cep,omitempty" yaml:"cep,omitempty"`
	Street            string      `json:"logradouro,omitempty" yaml:"logradouro,omitempty"`
	Number            string      `json:"numero,omitempty" yaml:"numero,omitempty"`
	District          string      `json:"bairro,omitempty" yaml:"bairro,omitempty"`
	City              string      `json:"cidade,omitempty" yaml:"cidade,omitempty"`
	UF                string      `json:"uf,omitempty" yaml:"uf,omitempty"`
	IBGECode          string      `json:"codigoIbge,omitempty" yaml:"codigoIbge,omitempty"`
	MunicipalRegistry string      `json:"inscricaoMunicipal,omitempty" yaml:"inscricaoMunicipal,omitempty"`
	TaxRegime         string      `json:"regimeTributario,omitempty" yaml:"regimeTributario,omitempty"`
	Environment       string      `json:"ambiente,omitempty" yaml:"ambiente,omitempty"`
	DPSSeries         string      `json:"serieDPS,omitempty" yaml:"serieDPS,omitempty"`
	LastDPS           Amount      `json:"ultimoDPS,omitempty" yaml:"ultimoDPS,omitempty"`
	CNAEs             []CNAE      `json:"cnaes,omitempty" yaml:"cnaes,omitempty"`
	Activities        []CNAE      `json:"atividades,omitempty" yaml:"atividades,omitempty"`
	Company           *CompanyRef `json:"empresa,omitempty" yaml:"empresa,omitempty"`
	PlanDetails       *Plan       `json:"planoDetalhado,omitempty" yaml:"planoDetalhado,omitempty"`
	PlanCycle         string      `json:"planoCiclo,omitempty" yaml:"planoCiclo,omitempty"`
	// set while a certificate is installed
	CertificateExpiresAt string `json:"vencimentoCertificado,omitempty" yaml:"vencimentoCertificado,omitempty"`
}

// CompanyName returns the name of the active company.
func (p *Profile) CompanyName() string {
	if p.RazaoSocial != "" {
		return p.RazaoSocial
	}
	if p.Company != nil {
		return p.Company.RazaoSocial
	}
	return ""
}

// Registered reports whether the company registration is complete.
func (p *Profile) Registered() bool {
	return p.Complete && p.Document != ""
}

// ActivityList prefers the activities list and falls back to cnaes.
func (p *Profile) ActivityList() []CNAE {
	if len(p.Activities) > 0 {
		return p.Activities
	}
	return p.CNAEs
}

// ClientRef is the customer embedded in an invoice.
type ClientRef struct {
	ID   ID     `json:"id" yaml:"id"`
	Name string `json:"nome" yaml:"nome"`
}

// InvoiceDocument is the fiscal document issued for a sale.
type InvoiceDocument struct {
	Number string `json:"numero,omitempty" yaml:"numero,omitempty"`
	Status string `json:"status,omitempty" yaml:"status,omitempty"`
}

// Invoice is an entry of GET /notas. Depending on the backend version the
// fiscal documents are nested under notas or flattened onto the entry.
type Invoice struct {
	ID          ID                `json:"id" yaml:"id"`
	CreatedAt   string            `json:"createdAt" yaml:"createdAt"`
	Value       Amount            `json:"valor" yaml:"valor"`
	Description string            `json:"servicoDescricao,omitempty" yaml:"servicoDescricao,omitempty"`
	Client      *ClientRef        `json:"cliente,omitempty" yaml:"cliente,omitempty"`
	Documents   []InvoiceDocument `json:"notas,omitempty" yaml:"notas,omitempty"`
	Number      string            `json:"numero,omitempty" yaml:"numero,omitempty"`
	Status      string            `json:"status,omitempty" yaml:"status,omitempty"`
}

// Document returns the first nested document, or the flattened fields.
func (i *Invoice) Document() InvoiceDocument {
	if len(i.Documents) > 0 {
		return i.Documents[0]
	}
	return InvoiceDocument{Number: i.Number, Status: i.Status}
}

// ClientName returns the customer name, "Cliente Final" when there is none.
func (i *Invoice) ClientName() string {
	if i.Client != nil && i.Client.Name != "" {
		return i.Client.Name
	}
	return "Cliente Final"
}

// InvoiceFilter narrows GET /notas.
type InvoiceFilter struct {
	Year   string
	Month  string
	Search string
	Limit  int
}

// IssueInvoiceRequest is the body of POST /notas.
type IssueInvoiceRequest struct {
	ClientID    string  `json:"clienteId" validate:"required" label:"cliente"`
	Description string  `json:"servicoDescricao" validate:"required" label:"descrição"`
	Value       float64 `json:"valor" validate:"gt=0" label:"valor"`
}

// Client is a customer of the company.
type Client struct {
	ID          ID     `json:"id" yaml:"id"`
	Name        string `json:"nome,omitempty" yaml:"nome,omitempty"`
	RazaoSocial string `json:"razaoSocial,omitempty" yaml:"razaoSocial,omitempty"`
	Document    string `json:"documento,omitempty" yaml:"documento,omitempty"`
	Email       string `json:"email,omitempty" yaml:"email,omitempty"`
	City        string `json:"cidade,omitempty" yaml:"cidade,omitempty"`
	UF          string `json:"uf,omitempty" yaml:"uf,omitempty"`
}

// DisplayName returns the name, or the razão social for companies.
func (c *Client) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.RazaoSocial
}

// IsCompany reports whether the document is a CNPJ, formatted or not.
func (c *Client) IsCompany() bool {
	digits := 0
	for _, r := range c.Document {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits > 11
}

// Matches reports whether the query matches the name or the document,
// ignoring case.
func (c *Client) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.DisplayName()), q) ||
		strings.Contains(strings.ToLower(c.Document), q)
}

// LinkedCompany is a company an accountant may act on behalf of.
type LinkedCompany struct {
	ID           ID     `json:"id" yaml:"id"`
	RazaoSocial  string `json:"razaoSocial" yaml:"razaoSocial"`
	NomeFantasia string `json:"nomeFantasia,omitempty" yaml:"nomeFantasia,omitempty"`
	Document     string `json:"documento,omitempty" yaml:"documento,omitempty"`
}

// CNPJInfo is the result of a CNPJ lookup.
type CNPJInfo struct {
	RazaoSocial  string `json:"razaoSocial" yaml:"razaoSocial"`
	NomeFantasia string `json:"nomeFantasia,omitempty" yaml:"nomeFantasia,omitempty"`
	CEP          string `json:"cep,omitempty" yaml:"cep,omitempty"`
	Street       string `json:"logradouro,omitempty" yaml:"logradouro,omitempty"`
	Number       string `json:"numero,omitempty" yaml:"numero,omitempty"`
	District     string `json:"bairro,omitempty" yaml:"bairro,omitempty"`
	City         string `json:"cidade,omitempty" yaml:"cidade,omitempty"`
	UF           string `json:"uf,omitempty" yaml:"uf,omitempty"`
	CNAEs        []CNAE `json:"cnaes,omitempty" yaml:"cnaes,omitempty"`
	Activities   []CNAE `json:"atividades,omitempty" yaml:"atividades,omitempty"`
}

// TradeName returns the nome fantasia, falling back to the razão social.
func (c *CNPJInfo) TradeName() string {
	if c.NomeFantasia != "" {
		return c.NomeFantasia
	}
	return c.RazaoSocial
}

// ProfileUpdate is the body of PUT /perfil for account settings.
type ProfileUpdate struct {
	Name     string `json:"nome" validate:"required" label:"nome"`
	Phone    string `json:"telefone"`
	Position string `json:"cargo"`
}

// PasswordChange is the body of POST /auth/trocar-senha.
type PasswordChange struct {
	Current string `json:"senhaAtual" validate:"required" label:"senha atual"`
	New     string `json:"novaSenha" validate:"required" label:"nova senha"`
}

// Tax regimes and environments accepted by the backend.
const (
	TaxRegimeSimples = "SIMPLES_NACIONAL"
	EnvHomologation  = "HOMOLOGACAO"
	EnvProduction    = "PRODUCAO"
)

// CompanySettings is the body of PUT /perfil for company settings.
type CompanySettings struct {
	Document            string `json:"documento" validate:"required,cnpj" label:"CNPJ"`
	RazaoSocial         string `json:"razaoSocial" validate:"required" label:"razão social"`
	NomeFantasia        string `json:"nomeFantasia"`
	CEP                 string `json:"cep"`
	Street              string `json:"logradouro"`
	Number              string `json:"numero"`
	District            string `json:"bairro"`
	City                string `json:"cidade"`
	UF                  string `json:"uf" validate:"omitempty,len=2" label:"UF"`
	IBGECode            string `json:"codigoIbge"`
	MunicipalRegistry   string `json:"inscricaoMunicipal"`
	TaxRegime           string `json:"regimeTributario"`
	Environment         string `json:"ambiente" validate:"oneof=HOMOLOGACAO PRODUCAO" label:"ambiente"`
	DPSSeries           string `json:"serieDPS"`
	LastDPS             *int   `json:"ultimoDPS,omitempty"`
	CNAEs               []CNAE `json:"cnaes"`
	CertificateFile     string `json:"certificadoArquivo,omitempty"`
	CertificatePassword string `json:"certificadoSenha,omitempty" validate:"required_with=CertificateFile" label:"senha do certificado"`
	DeleteCertificate   bool   `json:"deletarCertificado,omitempty"`
}

// CompanySettingsFromProfile seeds settings with the stored registration and
// the backend defaults.
func CompanySettingsFromProfile(p *Profile) CompanySettings {
	s := CompanySettings{
		Document:          p.Document,
		RazaoSocial:       p.RazaoSocial,
		NomeFantasia:      p.NomeFantasia,
		CEP:               p.CEP,
		Street:            p.Street,
		Number:            p.Number,
		District:          p.District,
		City:              p.City,
		UF:                p.UF,
		IBGECode:          p.IBGECode,
		MunicipalRegistry: p.MunicipalRegistry,
		TaxRegime:         p.TaxRegime,
		Environment:       p.Environment,
		DPSSeries:         p.DPSSeries,
		CNAEs:             p.ActivityList(),
	}
	if s.TaxRegime == "" {
		s.TaxRegime = TaxRegimeSimples
	}
	if s.Environment == "" {
		s.Environment = EnvHomologation
	}
	if s.DPSSeries == "" {
		s.DPSSeries = "1"
	}
	if p.LastDPS > 0 {
		last := int(p.LastDPS)
		s.LastDPS = &last
	}
	if s.CNAEs == nil {
		s.CNAEs = []CNAE{}
	}
	return s
}

// ApplyLookup copies the fields of a CNPJ lookup onto the settings.
func (s *CompanySettings) ApplyLookup(info *CNPJInfo) {
	s.RazaoSocial = info.RazaoSocial
	s.NomeFantasia = info.TradeName()
	s.CEP = info.CEP
	s.Street = info.Street
	s.Number = info.Number
	s.District = info.District
	s.City = info.City
	s.UF = info.UF
	if len(info.CNAEs) > 0 {
		s.CNAEs = info.CNAEs
	} else if len(info.Activities) > 0 {
		s.CNAEs = info.Activities
	}
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"senha"`
}

// LoginResponse is the result of a successful login.
type LoginResponse struct {
	Token string   `json:"token"`
	User  Identity `json:"user"`
}
