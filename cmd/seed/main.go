package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/tablekeep/backoffice/internal/config"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/enum"
	"github.com/tablekeep/backoffice/internal/logging"
	"golang.org/x/crypto/bcrypt"
)

type seedInput struct {
	tenantName string
	tenantSlug string
	orgName    string
	branchName string
	email      string
	password   string
	fullName   string
}

func main() {
	in := seedInput{}
	flag.StringVar(&in.tenantName, "tenant", "", "Tenant name")
	flag.StringVar(&in.tenantSlug, "slug", "", "Tenant slug")
	flag.StringVar(&in.orgName, "org", "", "Organisation name")
	flag.StringVar(&in.branchName, "branch", "", "Branch name")
	flag.StringVar(&in.email, "email", "", "Owner email address")
	flag.StringVar(&in.password, "password", "", "Owner password")
	flag.StringVar(&in.fullName, "name", "", "Owner full name")
	flag.Parse()

	// Flags win, then SEED_* variables, then defaults.
	fallback(&in.tenantName, "SEED_TENANT", "Demo Restaurant Group")
	fallback(&in.tenantSlug, "SEED_SLUG", "demo")
	fallback(&in.orgName, "SEED_ORG", "Demo Restaurants")
	fallback(&in.branchName, "SEED_BRANCH", "Main Branch")
	fallback(&in.email, "SEED_EMAIL", "owner@example.com")
	fallback(&in.fullName, "SEED_NAME", "Demo Owner")
	if in.password == "" {
		in.password = os.Getenv("SEED_PASSWORD")
	}
	if in.password == "" {
		in.password = "password123"
		logrus.Warn("using default password 'password123', change it before going live")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	logger := logging.New(cfg.LogLevel, "text")

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("unable to connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("unable to ping database")
	}

	if err := seed(ctx, pool, in, logger); err != nil {
		logger.WithError(err).Fatal("seed failed")
	}
}

func fallback(v *string, envKey, def string) {
	if *v == "" {
		*v = os.Getenv(envKey)
	}
	if *v == "" {
		*v = def
	}
}

// seed creates the tenant, organisation, branch and owner together or not at all.
// An existing owner email makes it a no-op.
func seed(ctx context.Context, pool *pgxpool.Pool, in seedInput, logger *logrus.Logger) error {
	queries := database.New(pool)
	if existing, err := queries.GetUserByEmail(ctx, in.email); err == nil {
		logger.WithFields(logrus.Fields{"email": in.email, "user_id": existing.ID}).Info("owner already exists, skipping")
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check owner: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	qtx := queries.WithTx(tx)

	tenant, err := qtx.CreateTenant(ctx, database.CreateTenantParams{Name: in.tenantName, Slug: in.tenantSlug})
	if err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	org, err := qtx.CreateOrganisation(ctx, database.CreateOrganisationParams{TenantID: tenant.ID, Name: in.orgName})
	if err != nil {
		return fmt.Errorf("create organisation: %w", err)
	}
	branch, err := qtx.CreateBranch(ctx, database.CreateBranchParams{
		TenantID:       tenant.ID,
		OrganisationID: org.ID,
		Name:           in.branchName,
	})
	if err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	owner, err := qtx.CreateUser(ctx, database.CreateUserParams{
		TenantID:       tenant.ID,
		BranchID:       pgtype.UUID{Bytes: branch.ID, Valid: true},
		Email:          in.email,
		HashedPassword: string(hashed),
		FullName:       in.fullName,
		Role:           enum.UserRoleOwner,
	})
	if err != nil {
		return fmt.Errorf("create owner: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"tenant_id":       tenant.ID,
		"organisation_id": org.ID,
		"branch_id":       branch.ID,
		"owner_id":        owner.ID,
	}).Info("seed completed")
	return nil
}
