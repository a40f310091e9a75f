// cvpm 是运维侧的排查工具：直接查看云厂商侧的实例，或按租户手动触发一轮对账
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	_ "github.com/jimmicro/version"

	"github.com/adiology/cvp/internal/cvp/config"
	"github.com/adiology/cvp/internal/cvp/repository"
	"github.com/adiology/cvp/internal/cvp/service"
	"github.com/adiology/cvp/pkg/eventlog"
	"github.com/adiology/cvp/pkg/provider"
)

func main() {
	reconcile := flag.Bool("reconcile", false, "run one reconciliation round against the provider")
	tenantID := flag.String("tenant", "", "limit reconciliation to a single tenant")
	flag.Parse()

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("failed to create config: %v", err)
	}

	httpClient, err := provider.NewHTTPClient(provider.Config{
		BaseURL:   cfg.Provider.BaseURL,
		KeyID:     cfg.Provider.KeyID,
		SecretKey: cfg.Provider.SecretKey,
		Timeout:   cfg.Provider.Timeout,
	})
	if err != nil {
		log.Fatalf("failed to create provider client: %v", err)
	}
	client := provider.NewRetryingClient(httpClient, provider.DefaultRetryPolicy())

	ctx := context.Background()

	if *reconcile {
		runReconciliation(ctx, cfg, client, *tenantID)
		return
	}

	// 默认：打印云厂商侧的全部实例
	fmt.Println("=== Provider Instances ===")
	instances, err := client.ListInstances(ctx)
	if err != nil {
		log.Fatalf("failed to list instances: %v", err)
	}
	for _, instance := range instances {
		fmt.Printf("%-22s %-12s public=%-15s private=%-15s\n",
			instance.ProviderID, instance.Status, instance.PublicIP, instance.PrivateIP)
	}
	fmt.Printf("\n%d instances\n", len(instances))
}

func runReconciliation(ctx context.Context, cfg *config.Config, client provider.ComputeClient, tenantID string) {
	repo, err := repository.New(cfg.DBPath())
	if err != nil {
		log.Fatalf("failed to open repository: %v", err)
	}
	defer func() { _ = repo.Close() }()

	vmRepo := repository.NewVMRepository(repo.DB())
	usageRepo := repository.NewUsageRepository(repo.DB())
	healthService := service.NewHealthService(vmRepo, usageRepo, client, eventlog.New(256))

	tenants := []string{tenantID}
	if tenantID == "" {
		tenants, err = vmRepo.ListTenants(ctx)
		if err != nil {
			log.Fatalf("failed to list tenants: %v", err)
		}
	}

	for _, tenant := range tenants {
		reports, err := healthService.ReconcileTenant(ctx, tenant)
		if err != nil {
			log.Printf("tenant %s: reconciliation failed: %v", tenant, err)
			continue
		}
		for _, report := range reports {
			marker := " "
			if report.StatusCorrected {
				marker = "*"
			}
			fmt.Printf("%s %-22s %-10s provider=%-12s local=%s\n",
				marker, report.VMID, report.Verdict, report.ProviderStatus, report.PersistedStatus)
		}
	}
	fmt.Println("\ndone")
}
