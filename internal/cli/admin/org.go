package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lumenlabs/handoff/internal/config"
	"github.com/lumenlabs/handoff/internal/storage"
)

func OrgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage organizations",
		Long:  "List, expire, and offboard organization namespaces",
	}

	cmd.AddCommand(OrgListCmd())
	cmd.AddCommand(OrgExpireCmd())
	cmd.AddCommand(OrgOffboardCmd())

	return cmd
}

func OrgListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List organizations with stored data",
		Long:  "List every organization that has a namespace in the store",
		RunE:  runOrgList,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runOrgList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	orgs, err := st.ListOrgs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list organizations: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(map[string]interface{}{"orgs": orgs}, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	if len(orgs) == 0 {
		fmt.Println("No organizations found")
		return nil
	}
	fmt.Println("Organizations:")
	for _, org := range orgs {
		fmt.Printf("  %s\n", org)
	}
	return nil
}

func OrgExpireCmd() *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "expire <org-id>",
		Short: "Expire old chunks for an organization",
		Long:  "Securely dispose of chunks older than the given age from one organization's namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrgExpire(args[0], maxAge)
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Expire chunks older than this (e.g. 720h)")
	_ = cmd.MarkFlagRequired("max-age")

	return cmd
}

func runOrgExpire(orgID string, maxAge time.Duration) error {
	ctx := context.Background()

	if maxAge <= 0 {
		return fmt.Errorf("--max-age must be positive")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	expired, err := st.Expire(ctx, orgID, time.Now().UTC().Add(-maxAge))
	if err != nil {
		return fmt.Errorf("failed to expire chunks: %w", err)
	}

	fmt.Printf("Expired %d chunks for organization %s\n", expired, orgID)
	return nil
}

func OrgOffboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offboard <org-id>",
		Short: "Remove every trace of an organization",
		Long:  "Securely dispose of the organization's namespace and, if configured, its archive",
		Args:  cobra.ExactArgs(1),
		RunE:  runOrgOffboard,
	}

	return cmd
}

func runOrgOffboard(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	orgID := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := st.Delete(ctx, orgID); err != nil {
		return fmt.Errorf("failed to offboard organization: %w", err)
	}

	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.DeleteOrgArchive(ctx, orgID); err != nil {
			return fmt.Errorf("failed to delete archive: %w", err)
		}
	}

	fmt.Printf("Offboarded organization %s\n", orgID)
	return nil
}
