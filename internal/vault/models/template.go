package models

// SecretTemplate describes the fields of a commonly stored secret so front
// ends can prompt for them. Templates are a fixed built-in catalogue.
type SecretTemplate struct {
	Name        string
	Description string
	Type        SecretType
	Fields      []TemplateField
	Tags        []string
}

// TemplateField is one prompt in a template.
type TemplateField struct {
	Name        string
	Description string
	Required    bool
	Secret      bool
	Default     string
}

// BuiltinTemplates returns the template catalogue.
func BuiltinTemplates() []SecretTemplate {
	return []SecretTemplate{
		{
			Name:        "aws-credentials",
			Description: "Amazon Web Services access credentials",
			Type:        SecretTypeCloudCredentials,
			Fields: []TemplateField{
				{Name: "access_key_id", Description: "AWS Access Key ID", Required: true},
				{Name: "secret_access_key", Description: "AWS Secret Access Key", Required: true, Secret: true},
				{Name: "region", Description: "Default AWS region", Default: "us-east-1"},
			},
			Tags: []string{"aws", "cloud", "credentials"},
		},
		{
			Name:        "database-connection",
			Description: "Database connection credentials and configuration",
			Type:        SecretTypeDatabaseConnection,
			Fields: []TemplateField{
				{Name: "engine", Description: "Database engine (postgres, mysql, sqlite, ...)", Required: true},
				{Name: "connection_string", Description: "Full connection string", Required: true, Secret: true},
				{Name: "ssl", Description: "Require TLS (true/false)", Default: "true"},
			},
			Tags: []string{"database", "connection"},
		},
		{
			Name:        "ssh-key",
			Description: "SSH private/public key pair for server access",
			Type:        SecretTypeSSHKey,
			Fields: []TemplateField{
				{Name: "key_type", Description: "SSH key type (rsa, ed25519, ecdsa)", Required: true, Default: "ed25519"},
				{Name: "private_key", Description: "SSH private key (PEM format)", Required: true, Secret: true},
				{Name: "public_key", Description: "SSH public key"},
				{Name: "passphrase", Description: "Key passphrase (if encrypted)", Secret: true},
			},
			Tags: []string{"ssh", "key", "server"},
		},
		{
			Name:        "api-key",
			Description: "API key or token for service authentication",
			Type:        SecretTypeAPIKey,
			Fields: []TemplateField{
				{Name: "key", Description: "API key or token", Required: true, Secret: true},
				{Name: "secret", Description: "API secret (if required)", Secret: true},
				{Name: "endpoint", Description: "API endpoint URL"},
			},
			Tags: []string{"api", "key", "token"},
		},
	}
}
