package config

import (
	"os"
	"strings"
	"time"

	"github.com/Azure/go-autorest/autorest"
	"github.com/Azure/go-autorest/autorest/azure"
	"github.com/Azure/go-autorest/autorest/azure/auth"
	"github.com/pkg/errors"

	"github.com/alexeldeib/dspm-netconfig/pkg/authorizer"
)

const (
	defaultUserAgent = "dspm-netconfig"
	defaultTimeout   = 2 * time.Minute
	defaultRetries   = 3

	// terraform-style fallback for the subscription variable.
	armSubscriptionID = "ARM_SUBSCRIPTION_ID"
)

// Config holds the configured useragent, environment, and authentication
// credentials. The environment will notably be used to identify what resource
// to request tokens for e.g. in sovereign clouds.
type Config struct {
	userAgent    string
	env          *azure.Environment
	app          string
	key          string
	tenant       string
	subscription string
	timeout      time.Duration
	retries      int
	preset       autorest.Authorizer
}

type Option func(*Config)

// New stores the environment and authentication configuration.
// It uses this information to produces authorizers for various resources.
func New(opts ...Option) (*Config, error) {
	var err error
	var settings auth.EnvironmentSettings

	if settings, err = auth.GetSettingsFromEnvironment(); err != nil {
		return nil, err
	}

	c := &Config{
		userAgent:    defaultUserAgent,
		env:          &settings.Environment,
		subscription: settings.Values[auth.SubscriptionID],
		timeout:      defaultTimeout,
		retries:      defaultRetries,
	}

	if c.subscription == "" {
		c.subscription = os.Getenv(armSubscriptionID)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// UserAgent sets the user agent on Azure SDK clients.
func UserAgent(userAgent string) Option {
	return func(c *Config) {
		c.userAgent = userAgent
	}
}

// App sets the AAD application to authenticate with.
func App(app string) Option {
	return func(c *Config) {
		c.app = app
	}
}

// Key sets the client secret for the AAD application used in authentication.
func Key(key string) Option {
	return func(c *Config) {
		c.key = key
	}
}

// Tenant sets the tenant ID for authentication and token acquisition.
func Tenant(tenant string) Option {
	return func(c *Config) {
		c.tenant = tenant
	}
}

// Subscription overrides the subscription detected from the environment. Empty values are ignored.
func Subscription(subscription string) Option {
	return func(c *Config) {
		if subscription != "" {
			c.subscription = subscription
		}
	}
}

// Environment overrides the cloud environment, e.g. for sovereign clouds.
func Environment(env azure.Environment) Option {
	return func(c *Config) {
		c.env = &env
	}
}

// Authorizer skips token acquisition and signs every request with the given authorizer.
func Authorizer(preset autorest.Authorizer) Option {
	return func(c *Config) {
		c.preset = preset
	}
}

// Timeout bounds every individual provider call.
func Timeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Retries sets how many times a transient provider failure is retried.
func Retries(retries int) Option {
	return func(c *Config) {
		if retries >= 0 {
			c.retries = retries
		}
	}
}

func (c *Config) SubscriptionID() string {
	return c.subscription
}

func (c *Config) RequestTimeout() time.Duration {
	return c.timeout
}

func (c *Config) MaxRetries() int {
	return c.retries
}

// Validate reports configuration which can never produce a working client.
func (c *Config) Validate() error {
	if c.subscription == "" {
		return errors.Errorf("subscription is required, either with --subscription or %s/%s", auth.SubscriptionID, armSubscriptionID)
	}
	if c.hasArgs() {
		return c.validateArgs()
	}
	return nil
}

// AuthorizeClient injects a resource management authorizer into a client.
// Explicit client credentials win over whatever the environment provides.
func (c *Config) AuthorizeClient(client *autorest.Client) (err error) {
	if c.preset != nil {
		client.Authorizer = c.preset
		return client.AddToUserAgent(c.userAgent)
	}
	if c.hasArgs() {
		return c.AuthorizeClientFromArgs(client)
	}
	settings, err := c.Settings()
	if err != nil {
		return err
	}
	authorizer, err := settings.GetAuthorizer()
	if err != nil {
		return err
	}
	client.Authorizer = authorizer
	return client.AddToUserAgent(c.userAgent)
}

// Settings reads credentials from the environment but targets the configured cloud,
// so tokens are issued for the same endpoint requests are sent to.
func (c *Config) Settings() (auth.EnvironmentSettings, error) {
	settings, err := auth.GetSettingsFromEnvironment()
	if err != nil {
		return settings, err
	}
	settings.Environment = *c.env
	if os.Getenv(auth.Resource) == "" {
		settings.Values[auth.Resource] = c.env.ResourceManagerEndpoint
	}
	return settings, nil
}

// AuthorizeClientFromArgs authorizes an SDK client using the client credentials passed on the command line.
func (c *Config) AuthorizeClientFromArgs(client *autorest.Client) (err error) {
	if err := c.validateArgs(); err != nil {
		return err
	}
	authorizer, err := authorizer.NewBuilder().
		In(*c.env).
		WithClientCredentials(c.app, c.key, c.tenant).
		Build()
	if err != nil {
		return err
	}
	client.Authorizer = authorizer
	return client.AddToUserAgent(c.userAgent)
}

// BaseURI returns the resource manager endpoint of the configured cloud.
func (c *Config) BaseURI() string {
	return strings.TrimSuffix(c.env.ResourceManagerEndpoint, "/")
}

func (c *Config) hasArgs() bool {
	return c.app != "" || c.tenant != "" || c.key != ""
}

func (c *Config) validateArgs() error {
	if c.app == "" || c.tenant == "" || c.key == "" {
		return errors.New("app, tenant, and key must all be provided as options for authenticating with args")
	}
	return nil
}
