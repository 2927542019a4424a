package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pulumi/pulumi-digitalocean/sdk/v4/go/digitalocean"
	"github.com/pulumi/pulumi-kubernetes/sdk/v4/go/kubernetes"
	corev1 "github.com/pulumi/pulumi-kubernetes/sdk/v4/go/kubernetes/core/v1"
	metav1 "github.com/pulumi/pulumi-kubernetes/sdk/v4/go/kubernetes/meta/v1"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"
)

const prefix = "tourism-booking"

type stackSettings struct {
	region          string
	nodeSize        string
	nodeCount       int
	environment     string
	paymentMode     string
	fallbackEnabled bool
}

func loadSettings(cfg *config.Config) stackSettings {
	s := stackSettings{
		region:          cfg.Get("region"),
		nodeSize:        cfg.Get("nodeSize"),
		nodeCount:       cfg.GetInt("nodeCount"),
		environment:     cfg.Get("environment"),
		paymentMode:     cfg.Get("paymentMode"),
		fallbackEnabled: cfg.GetBool("paymentFallbackEnabled"),
	}
	if s.region == "" {
		s.region = "fra1"
	}
	if s.nodeSize == "" {
		s.nodeSize = "s-2vcpu-4gb"
	}
	if s.nodeCount == 0 {
		s.nodeCount = 2
	}
	if s.environment == "" {
		s.environment = "production"
	}
	if s.paymentMode == "" {
		s.paymentMode = "sandbox"
	}
	return s
}

// managedCluster creates a DigitalOcean managed data store on the VPC.
func managedCluster(ctx *pulumi.Context, engine, version, size string, nodes int, s stackSettings, vpc *digitalocean.Vpc) (*digitalocean.DatabaseCluster, error) {
	name := fmt.Sprintf("%s-%s", prefix, engine)
	return digitalocean.NewDatabaseCluster(ctx, name, &digitalocean.DatabaseClusterArgs{
		Name:               pulumi.String(name),
		Engine:             pulumi.String(engine),
		Version:            pulumi.String(version),
		Size:               pulumi.String(size),
		Region:             pulumi.String(s.region),
		NodeCount:          pulumi.Int(nodes),
		PrivateNetworkUuid: vpc.ID(),
	})
}

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {
		cfg := config.New(ctx, "")
		s := loadSettings(cfg)

		vpc, err := digitalocean.NewVpc(ctx, prefix+"-vpc", &digitalocean.VpcArgs{
			Name:    pulumi.String(prefix + "-vpc"),
			Region:  pulumi.String(s.region),
			IpRange: pulumi.String("10.20.0.0/16"),
		})
		if err != nil {
			return err
		}

		cluster, err := digitalocean.NewKubernetesCluster(ctx, prefix+"-cluster", &digitalocean.KubernetesClusterArgs{
			Name:    pulumi.String(prefix + "-cluster"),
			Region:  pulumi.String(s.region),
			Version: pulumi.String("1.31.9-do.2"),
			VpcUuid: vpc.ID(),
			NodePool: &digitalocean.KubernetesClusterNodePoolArgs{
				Name:      pulumi.String("default"),
				Size:      pulumi.String(s.nodeSize),
				NodeCount: pulumi.Int(s.nodeCount),
			},
		})
		if err != nil {
			return err
		}

		// Places, favorites and payments share one Postgres cluster.
		postgres, err := managedCluster(ctx, "pg", "15", "db-s-1vcpu-1gb", 1, s, vpc)
		if err != nil {
			return err
		}

		// Valkey backs payment idempotency keys only.
		valkey, err := managedCluster(ctx, "valkey", "8", "db-s-1vcpu-1gb", 1, s, vpc)
		if err != nil {
			return err
		}

		kafka, err := managedCluster(ctx, "kafka", "3.8", "db-s-2vcpu-2gb", 3, s, vpc)
		if err != nil {
			return err
		}

		k8sProvider, err := kubernetes.NewProvider(ctx, "k8s-provider", &kubernetes.ProviderArgs{
			Kubeconfig: cluster.KubeConfigs.Index(pulumi.Int(0)).RawConfig(),
		})
		if err != nil {
			return err
		}

		namespace, err := corev1.NewNamespace(ctx, prefix+"-namespace", &corev1.NamespaceArgs{
			Metadata: &metav1.ObjectMetaArgs{
				Name: pulumi.String(prefix),
			},
		}, pulumi.Provider(k8sProvider))
		if err != nil {
			return err
		}

		_, err = corev1.NewConfigMap(ctx, prefix+"-config", &corev1.ConfigMapArgs{
			Metadata: &metav1.ObjectMetaArgs{
				Name:      pulumi.String(prefix + "-config"),
				Namespace: namespace.Metadata.Name(),
			},
			Data: pulumi.StringMap{
				"APP_ENV":                  pulumi.String(s.environment),
				"DB_HOST":                  postgres.Host,
				"DB_PORT":                  pulumi.Sprintf("%v", postgres.Port),
				"DB_NAME":                  postgres.Database,
				"DB_USER":                  postgres.User,
				"DB_SSL_MODE":              pulumi.String("require"),
				"REDIS_HOST":               valkey.Host,
				"REDIS_PORT":               pulumi.Sprintf("%v", valkey.Port),
				"KAFKA_BROKERS":            pulumi.Sprintf("%v:%v", kafka.Host, kafka.Port),
				"KAFKA_PAYMENT_TOPIC":      pulumi.String("payment-events"),
				"PLACE_SERVICE_URL":        pulumi.String("http://place-service:8082"),
				"PAYMENT_MODE":             pulumi.String(s.paymentMode),
				"PAYMENT_FALLBACK_ENABLED": pulumi.Sprintf("%t", s.fallbackEnabled),
			},
		}, pulumi.Provider(k8sProvider))
		if err != nil {
			return err
		}

		_, err = corev1.NewSecret(ctx, prefix+"-secret", &corev1.SecretArgs{
			Metadata: &metav1.ObjectMetaArgs{
				Name:      pulumi.String(prefix + "-secret"),
				Namespace: namespace.Metadata.Name(),
			},
			StringData: pulumi.StringMap{
				"JWT_SECRET":         cfg.RequireSecret("jwtSecret"),
				"DB_PASSWORD":        postgres.Password,
				"REDIS_PASSWORD":     valkey.Password,
				"KAFKA_PASSWORD":     kafka.Password,
				"WAAFI_MERCHANT_UID": cfg.RequireSecret("waafiMerchantUid"),
				"WAAFI_API_USER_ID":  cfg.RequireSecret("waafiApiUserId"),
				"WAAFI_API_KEY":      cfg.RequireSecret("waafiApiKey"),
			},
		}, pulumi.Provider(k8sProvider))
		if err != nil {
			return err
		}

		accessToken := os.Getenv("DIGITALOCEAN_ACCESS_TOKEN")
		if accessToken == "" {
			accessToken = cfg.Get("digitalocean:token")
		}
		if accessToken != "" {
			if err := registryPullSecret(ctx, namespace, accessToken, k8sProvider); err != nil {
				return err
			}
		}

		ctx.Export("clusterName", cluster.Name)
		ctx.Export("kubeconfig", cluster.KubeConfigs.Index(pulumi.Int(0)).RawConfig())
		ctx.Export("databaseHost", postgres.Host)
		ctx.Export("redisHost", valkey.Host)
		ctx.Export("kafkaHost", kafka.Host)
		ctx.Export("paymentMode", pulumi.String(s.paymentMode))
		ctx.Export("vpcId", vpc.ID())

		return nil
	})
}

// registryPullSecret lets the default service account pull images from the
// DigitalOcean container registry.
func registryPullSecret(ctx *pulumi.Context, namespace *corev1.Namespace, accessToken string, provider pulumi.ProviderResource) error {
	dockerConfig := map[string]any{
		"auths": map[string]any{
			"registry.digitalocean.com": map[string]any{
				"username": "doctl",
				"password": accessToken,
				"auth":     base64.StdEncoding.EncodeToString([]byte("doctl:" + accessToken)),
			},
		},
	}
	configJSON, err := json.Marshal(dockerConfig)
	if err != nil {
		return fmt.Errorf("failed to encode registry config: %w", err)
	}

	registrySecret, err := corev1.NewSecret(ctx, "registry-secret", &corev1.SecretArgs{
		Metadata: &metav1.ObjectMetaArgs{
			Name:      pulumi.String("regcred"),
			Namespace: namespace.Metadata.Name(),
		},
		Type: pulumi.String("kubernetes.io/dockerconfigjson"),
		Data: pulumi.StringMap{
			".dockerconfigjson": pulumi.String(base64.StdEncoding.EncodeToString(configJSON)),
		},
	}, pulumi.Provider(provider))
	if err != nil {
		return err
	}

	_, err = corev1.NewServiceAccount(ctx, "default-service-account", &corev1.ServiceAccountArgs{
		Metadata: &metav1.ObjectMetaArgs{
			Name:      pulumi.String("default"),
			Namespace: namespace.Metadata.Name(),
		},
		ImagePullSecrets: corev1.LocalObjectReferenceArray{
			&corev1.LocalObjectReferenceArgs{
				Name: registrySecret.Metadata.Name(),
			},
		},
	}, pulumi.Provider(provider), pulumi.DependsOn([]pulumi.Resource{registrySecret}))
	return err
}
