package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callpower/internal/audit"
	"callpower/internal/auth"
	"callpower/internal/campaign"
	"callpower/internal/config"
	"callpower/internal/political"
	"callpower/internal/rbac"
	"callpower/pkg/logger"
	"callpower/pkg/utils"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "callpower-admin",
		Short:        "Operator tooling for the call orchestrator",
		SilenceUsage: true,
	}
	root.AddCommand(newTokenCmd(), newImportCmd())
	return root
}

// token mints admin API credentials. There is no login endpoint; operators
// issue tokens out of band.
func newTokenCmd() *cobra.Command {
	var (
		userID    string
		role      string
		campaigns []int64
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access/refresh token pair for the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			m, err := auth.NewManager(cfg.Auth)
			if err != nil {
				return err
			}
			pair, err := m.IssuePair(time.Now(), auth.Grant{UserID: userID, Role: role, CampaignIDs: campaigns})
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
				"access_token":  pair.AccessToken,
				"refresh_token": pair.RefreshToken,
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id carried in the token subject")
	cmd.Flags().StringVar(&role, "role", rbac.RoleAnalyst, "owner, analyst, data_manager or super_admin")
	cmd.Flags().Int64SliceVar(&campaigns, "campaign", nil, "campaign ids the token may read (repeatable; empty means all)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// import loads a file of upstream political records into the target tables.
func newImportCmd() *cobra.Command {
	var (
		sourceKey string
		actor     string
	)
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import political data records (JSON array or one object per line)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(cfg.App.Env)

			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			records, err := readRecords(in)
			if err != nil {
				return err
			}

			db, err := utils.OpenPostgres(ctx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := political.NewImporter(campaign.NewPostgresRepo(db)).Import(ctx, sourceKey, records)
			if err != nil {
				return err
			}
			if !res.Supported {
				log.Warn("no adapter for source, records stored as-is", "source_key", sourceKey)
			}

			sum := audit.ImportSummary{Imported: res.Imported, Rejected: res.Rejected}
			for _, e := range res.Errors {
				sum.Errors = append(sum.Errors, e.Error())
				log.Warn("record rejected", "key", e.Key, "err", e.Err)
			}
			if err := audit.NewService(audit.NewPostgresRepo(db)).LogTargetImport(ctx, actor, "", "", sourceKey, sum); err != nil {
				log.Warn("audit append failed", "err", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, rejected %d\n", res.Imported, res.Rejected)
			return nil
		},
	}
	cmd.Flags().StringVar(&sourceKey, "source", "", "source key, e.g. us:bioguide or ca:opennorth")
	cmd.Flags().StringVar(&actor, "actor", "cli", "user id recorded in the audit log")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func validRole(role string) bool {
	switch role {
	case rbac.RoleOwner, rbac.RoleAnalyst, rbac.RoleDataManager, rbac.RoleSuperAdmin:
		return true
	}
	return false
}

// readRecords accepts a JSON array of {key, data} objects or a stream of them.
func readRecords(r io.Reader) ([]political.KeyedRecord, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(1)
	for err == nil && len(bytes.TrimSpace(head)) == 0 {
		if _, err = br.ReadByte(); err == nil {
			head, err = br.Peek(1)
		}
	}
	if errors.Is(err, io.EOF) {
		return nil, errors.New("no records")
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	var out []political.KeyedRecord
	if head[0] == '[' {
		if err := dec.Decode(&out); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
	} else {
		for {
			var rec political.KeyedRecord
			if err := dec.Decode(&rec); errors.Is(err, io.EOF) {
				break
			} else if err != nil {
				return nil, fmt.Errorf("decode record %d: %w", len(out)+1, err)
			}
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no records")
	}
	return out, nil
}
