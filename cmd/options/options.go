package options

import (
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/alexeldeib/dspm-netconfig/pkg/authorizer"
	"github.com/alexeldeib/dspm-netconfig/pkg/config"
	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
	"github.com/alexeldeib/dspm-netconfig/pkg/message"
)

const (
	DefaultMarker = "dspm"
	DefaultTag    = "dspm"
)

// Global holds the flags shared by every command.
type Global struct {
	Subscription string
	Marker       string
	Tag          string
	Cloud        string
	ClientID     string
	ClientSecret string
	TenantID     string
	Timeout      time.Duration
	Retries      int
	Debug        bool
	NoColor      bool
	Quiet        bool
	// UserAgent is sent with every Azure request. Empty keeps the library default.
	UserAgent string
}

func NewGlobal() *Global {
	return &Global{
		Marker:  DefaultMarker,
		Tag:     DefaultTag,
		Timeout: 2 * time.Minute,
		Retries: 3,
	}
}

func (g *Global) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&g.Subscription, "subscription", g.Subscription, "Azure subscription ID. Defaults to AZURE_SUBSCRIPTION_ID or ARM_SUBSCRIPTION_ID.")
	fs.StringVar(&g.Marker, "marker", g.Marker, "Substring identifying the DSPM resource group. Exactly one group must match.")
	fs.StringVar(&g.Tag, "tag", g.Tag, "Tag key marking managed virtual networks. Also prefixes managed subnet names.")
	fs.StringVar(&g.Cloud, "cloud", g.Cloud, "Azure cloud name, e.g. AzurePublicCloud or AzureUSGovernmentCloud. Defaults to AZURE_ENVIRONMENT.")
	fs.StringVar(&g.ClientID, "client-id", g.ClientID, "Service principal application ID. Environment credentials are used when unset.")
	fs.StringVar(&g.ClientSecret, "client-secret", g.ClientSecret, "Service principal secret.")
	fs.StringVar(&g.TenantID, "tenant-id", g.TenantID, "Service principal tenant ID.")
	fs.DurationVar(&g.Timeout, "timeout", g.Timeout, "Timeout of each Azure call.")
	fs.IntVar(&g.Retries, "retries", g.Retries, "Retries of each Azure call on throttling or server errors.")
	fs.BoolVar(&g.Debug, "debug", g.Debug, "Verbose logging, including HTTP traffic and inventory dumps.")
	fs.BoolVar(&g.NoColor, "no-color", g.NoColor, "Disable colored output.")
	fs.BoolVarP(&g.Quiet, "quiet", "q", g.Quiet, "Only print warnings, errors and the summary.")
}

// Validate rejects flags which cannot produce a run.
func (g *Global) Validate() error {
	if g.Marker == "" {
		return inventory.NewConfigurationError("--marker must not be empty")
	}
	if g.Tag == "" {
		return inventory.NewConfigurationError("--tag must not be empty")
	}
	if g.Retries < 0 {
		return inventory.NewConfigurationError("--retries must not be negative")
	}
	return nil
}

// SetupLogger installs the process logger and returns the root logger of the tool.
func (g *Global) SetupLogger() logr.Logger {
	ctrl.SetLogger(zap.Logger(g.Debug))
	return ctrl.Log.WithName("dspmnet")
}

func (g *Global) Printer(out io.Writer) *message.Printer {
	return message.New(out, message.NoColor(g.NoColor), message.Quiet(g.Quiet))
}

func (g *Global) Discovery() inventory.Options {
	return inventory.Options{Marker: g.Marker, Tag: g.Tag}
}

// Config builds the Azure configuration from the environment and the flags.
func (g *Global) Config() (*config.Config, error) {
	opts := []config.Option{
		config.Subscription(g.Subscription),
		config.App(g.ClientID),
		config.Key(g.ClientSecret),
		config.Tenant(g.TenantID),
		config.Timeout(g.Timeout),
		config.Retries(g.Retries),
	}
	if g.UserAgent != "" {
		opts = append(opts, config.UserAgent(g.UserAgent))
	}
	if g.Cloud != "" {
		env, err := authorizer.GetEnvironment(g.Cloud)
		if err != nil {
			return nil, inventory.NewConfigurationError("%v", err)
		}
		opts = append(opts, config.Environment(env))
	}

	c, err := config.New(opts...)
	if err != nil {
		return nil, inventory.NewConfigurationError("failed to read azure settings: %v", err)
	}
	if err := c.Validate(); err != nil {
		return nil, inventory.NewConfigurationError("%v", err)
	}
	return c, nil
}
