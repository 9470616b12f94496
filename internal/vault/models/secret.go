package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pwvault/internal/common"
	"github.com/dmitrijs2005/pwvault/internal/cryptox"
)

// SecretType is the stable discriminator string of a secret variant. The set
// is append-only; adding a variant bumps the backup format version.
type SecretType string

const (
	SecretTypePassword           SecretType = "password"
	SecretTypeSSHKey             SecretType = "ssh_key"
	SecretTypeAPIKey             SecretType = "api_key"
	SecretTypeSecureNote         SecretType = "secure_note"
	SecretTypeDocument           SecretType = "document"
	SecretTypeConfiguration      SecretType = "configuration"
	SecretTypeCertificate        SecretType = "certificate"
	SecretTypeDatabaseConnection SecretType = "database_connection"
	SecretTypeCloudCredentials   SecretType = "cloud_credentials"
	SecretTypeCustom             SecretType = "custom"
)

// SecretTypes lists every known discriminator, in catalogue order.
func SecretTypes() []SecretType {
	return []SecretType{
		SecretTypePassword,
		SecretTypeSSHKey,
		SecretTypeAPIKey,
		SecretTypeSecureNote,
		SecretTypeDocument,
		SecretTypeConfiguration,
		SecretTypeCertificate,
		SecretTypeDatabaseConnection,
		SecretTypeCloudCredentials,
		SecretTypeCustom,
	}
}

// SecretData is a typed secret payload. Dispatch is by discriminator, never
// by dynamic subtype assertions outside this package.
type SecretData interface {
	SecretType() SecretType
	// Wipe overwrites the sensitive fields of the payload.
	Wipe()
}

// NoteFormat describes how a secure note's content should be rendered.
type NoteFormat string

const (
	NotePlain    NoteFormat = "plain"
	NoteMarkdown NoteFormat = "markdown"
	NoteHTML     NoteFormat = "html"
	NoteRich     NoteFormat = "rich"
)

// ConfigFormat describes the syntax of a stored configuration blob.
type ConfigFormat string

const (
	ConfigJSON ConfigFormat = "json"
	ConfigYAML ConfigFormat = "yaml"
	ConfigTOML ConfigFormat = "toml"
	ConfigXML  ConfigFormat = "xml"
	ConfigEnv  ConfigFormat = "env"
)

type PasswordData struct {
	Username string `json:"username"`
	Password string `json:"password"`
	URL      string `json:"url,omitempty"`
}

func (d *PasswordData) SecretType() SecretType { return SecretTypePassword }
func (d *PasswordData) Wipe() {
	wipeString(&d.Password)
}

type SSHKeyData struct {
	PrivateKey  string `json:"private_key"`
	PublicKey   string `json:"public_key,omitempty"`
	KeyType     string `json:"key_type"`
	Passphrase  string `json:"passphrase,omitempty"`
	Comment     string `json:"comment,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

func (d *SSHKeyData) SecretType() SecretType { return SecretTypeSSHKey }
func (d *SSHKeyData) Wipe() {
	wipeString(&d.PrivateKey)
	wipeString(&d.Passphrase)
}

type APIKeyData struct {
	Key       string   `json:"key"`
	Secret    string   `json:"secret,omitempty"`
	Endpoint  string   `json:"endpoint,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
	RateLimit string   `json:"rate_limit,omitempty"`
}

func (d *APIKeyData) SecretType() SecretType { return SecretTypeAPIKey }
func (d *APIKeyData) Wipe() {
	wipeString(&d.Key)
	wipeString(&d.Secret)
}

type SecureNoteData struct {
	Content string     `json:"content"`
	Format  NoteFormat `json:"format"`
}

func (d *SecureNoteData) SecretType() SecretType { return SecretTypeSecureNote }
func (d *SecureNoteData) Wipe() {
	wipeString(&d.Content)
}

type DocumentData struct {
	Bytes       []byte `json:"bytes"`
	ContentType string `json:"content_type"`
	Checksum    string `json:"checksum"`
	Compressed  bool   `json:"compressed,omitempty"`
}

func (d *DocumentData) SecretType() SecretType { return SecretTypeDocument }
func (d *DocumentData) Wipe() {
	cryptox.WipeBytes(d.Bytes)
	d.Bytes = nil
}

type ConfigurationData struct {
	Format  ConfigFormat `json:"format"`
	Content string       `json:"content"`
}

func (d *ConfigurationData) SecretType() SecretType { return SecretTypeConfiguration }
func (d *ConfigurationData) Wipe() {
	wipeString(&d.Content)
}

type CertificateData struct {
	Certificate string     `json:"certificate"`
	PrivateKey  string     `json:"private_key,omitempty"`
	Chain       []string   `json:"chain,omitempty"`
	Format      string     `json:"format"`
	Expiry      *time.Time `json:"expiry,omitempty"`
}

func (d *CertificateData) SecretType() SecretType { return SecretTypeCertificate }
func (d *CertificateData) Wipe() {
	wipeString(&d.PrivateKey)
}

type DatabaseConnectionData struct {
	Engine           string `json:"engine"`
	ConnectionString string `json:"connection_string"`
	SSL              bool   `json:"ssl,omitempty"`
}

func (d *DatabaseConnectionData) SecretType() SecretType { return SecretTypeDatabaseConnection }
func (d *DatabaseConnectionData) Wipe() {
	wipeString(&d.ConnectionString)
}

type CloudCredentialsData struct {
	Provider  string            `json:"provider"`
	AccessKey string            `json:"access_key"`
	SecretKey string            `json:"secret_key,omitempty"`
	Region    string            `json:"region,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

func (d *CloudCredentialsData) SecretType() SecretType { return SecretTypeCloudCredentials }
func (d *CloudCredentialsData) Wipe() {
	wipeString(&d.AccessKey)
	wipeString(&d.SecretKey)
	for k := range d.Extra {
		delete(d.Extra, k)
	}
}

type CustomData struct {
	SchemaName string            `json:"schema_name"`
	Fields     map[string]string `json:"fields"`
}

func (d *CustomData) SecretType() SecretType { return SecretTypeCustom }
func (d *CustomData) Wipe() {
	for k := range d.Fields {
		delete(d.Fields, k)
	}
}

// Envelope is the canonical serialized form of a SecretData: a discriminator
// plus the variant-specific object. This is what gets sealed into the
// encrypted_data column and what backups transport.
type Envelope struct {
	Type SecretType      `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Wrap serializes a payload into its envelope.
func Wrap(d SecretData) (Envelope, error) {
	if d == nil {
		return Envelope{}, fmt.Errorf("%w: nil secret payload", common.ErrInternal)
	}
	b, err := json.Marshal(d)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: d.SecretType(), Data: b}, nil
}

// Unwrap decodes the envelope back into its typed payload. An unrecognized
// discriminator yields common.ErrUnknownVariant.
func (e Envelope) Unwrap() (SecretData, error) {
	var d SecretData
	switch e.Type {
	case SecretTypePassword:
		d = &PasswordData{}
	case SecretTypeSSHKey:
		d = &SSHKeyData{}
	case SecretTypeAPIKey:
		d = &APIKeyData{}
	case SecretTypeSecureNote:
		d = &SecureNoteData{}
	case SecretTypeDocument:
		d = &DocumentData{}
	case SecretTypeConfiguration:
		d = &ConfigurationData{}
	case SecretTypeCertificate:
		d = &CertificateData{}
	case SecretTypeDatabaseConnection:
		d = &DatabaseConnectionData{}
	case SecretTypeCloudCredentials:
		d = &CloudCredentialsData{}
	case SecretTypeCustom:
		d = &CustomData{}
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownVariant, e.Type)
	}

	if err := json.Unmarshal(e.Data, d); err != nil {
		return nil, err
	}
	return d, nil
}

// SecretEntry is the at-rest row form of a typed secret: clear-text index
// fields plus one opaque encrypted blob holding the sealed envelope.
type SecretEntry struct {
	Id            string
	Name          string
	Description   string
	Type          SecretType
	EncryptedData []byte
	Tags          []string
	Environment   string
	Project       string
	Favorite      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastAccessed  *time.Time
	ExpiresAt     *time.Time
}

// DecryptedSecretEntry is the in-memory and in-backup form of a typed
// secret.
type DecryptedSecretEntry struct {
	Id           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Data         SecretData `json:"-"`
	Tags         []string   `json:"tags"`
	Environment  string     `json:"environment,omitempty"`
	Project      string     `json:"project,omitempty"`
	Favorite     bool       `json:"favorite"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Wipe overwrites the secret payload.
func (s *DecryptedSecretEntry) Wipe() {
	if s.Data != nil {
		s.Data.Wipe()
	}
}

// secretEntryWire is the canonical JSON shape: the metadata fields plus the
// payload envelope under "type"/"data".
type secretEntryWire struct {
	Id           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Type         SecretType      `json:"type"`
	Data         json.RawMessage `json:"data"`
	Tags         []string        `json:"tags"`
	Environment  string          `json:"environment,omitempty"`
	Project      string          `json:"project,omitempty"`
	Favorite     bool            `json:"favorite"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	LastAccessed *time.Time      `json:"last_accessed,omitempty"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
}

func (s DecryptedSecretEntry) MarshalJSON() ([]byte, error) {
	env, err := Wrap(s.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(secretEntryWire{
		Id:           s.Id,
		Name:         s.Name,
		Description:  s.Description,
		Type:         env.Type,
		Data:         env.Data,
		Tags:         s.Tags,
		Environment:  s.Environment,
		Project:      s.Project,
		Favorite:     s.Favorite,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		LastAccessed: s.LastAccessed,
		ExpiresAt:    s.ExpiresAt,
	})
}

func (s *DecryptedSecretEntry) UnmarshalJSON(b []byte) error {
	var w secretEntryWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	data, err := Envelope{Type: w.Type, Data: w.Data}.Unwrap()
	if err != nil {
		return err
	}

	*s = DecryptedSecretEntry{
		Id:           w.Id,
		Name:         w.Name,
		Description:  w.Description,
		Data:         data,
		Tags:         w.Tags,
		Environment:  w.Environment,
		Project:      w.Project,
		Favorite:     w.Favorite,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
		LastAccessed: w.LastAccessed,
		ExpiresAt:    w.ExpiresAt,
	}
	return nil
}
