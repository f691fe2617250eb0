package authorizer

import (
	"strings"

	"github.com/Azure/go-autorest/autorest"
	"github.com/Azure/go-autorest/autorest/azure"
	"github.com/Azure/go-autorest/autorest/azure/auth"
	"github.com/pkg/errors"
)

// Builder assembles a client credentials authorizer for a single resource in a single cloud.
type Builder struct {
	env    azure.Environment
	app    string
	key    string
	tenant string
}

func NewBuilder() *Builder {
	return &Builder{
		env: azure.PublicCloud,
	}
}

func (b *Builder) In(env azure.Environment) *Builder {
	b.env = env
	return b
}

func (b *Builder) WithClientCredentials(app, key, tenant string) *Builder {
	b.app = app
	b.key = key
	b.tenant = tenant
	return b
}

func (b *Builder) Build() (autorest.Authorizer, error) {
	if b.app == "" || b.tenant == "" || b.key == "" {
		return nil, errors.New("app, tenant, and key must all be provided as options for authenticating with client credentials")
	}
	creds := &auth.ClientCredentialsConfig{
		ClientID:     b.app,
		ClientSecret: b.key,
		TenantID:     b.tenant,
		Resource:     b.env.ResourceManagerEndpoint,
		AADEndpoint:  b.env.ActiveDirectoryEndpoint,
	}
	return creds.Authorizer()
}

// GetEnvironment resolves a cloud name such as "AzurePublicCloud" or "AzureUSGovernmentCloud".
// An empty name means the public cloud.
func GetEnvironment(env string) (azure.Environment, error) {
	if strings.TrimSpace(env) == "" {
		return azure.PublicCloud, nil
	}
	environment, err := azure.EnvironmentFromName(env)
	if err != nil {
		return azure.Environment{}, errors.Wrapf(err, "unknown cloud %q", env)
	}
	return environment, nil
}
