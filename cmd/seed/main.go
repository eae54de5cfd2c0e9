package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"

	"wikitree/internal/config"
	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/domain/pagequery"
	wikiSvc "wikitree/internal/domain/services/wiki"
	"wikitree/internal/repository/postgres"
	postgresWiki "wikitree/internal/repository/postgres/wiki"
	"wikitree/internal/search"
	wikiService "wikitree/internal/service/wiki"

	"github.com/joho/godotenv"
)

var seedUser = &wiki.User{ID: "seed", Username: "seed", Admin: true}

type seedPage struct {
	path  string
	body  string
	grant wiki.Grant
	tags  []string
}

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed pages")
	reindex := flag.Bool("reindex", false, "Rebuild the search index from the database (requires MEILI_URL)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.StorageDriver != config.DriverPostgres {
		log.Fatalf("Seeding needs STORAGE_DRIVER=%s, got %s", config.DriverPostgres, cfg.StorageDriver)
	}

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("🚫 BLOCKED: Cannot run --drop-tables in production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := postgres.DropAll(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	log.Println("📋 Ensuring database schema is up to date...")
	if err := postgres.Migrate(ctx, pool, tables, logger); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	repoConfig := &postgres.RepositoryConfig{Pool: pool, Tables: tables, Logger: logger}
	deps := wikiService.Deps{
		Pages:       postgresWiki.NewPageRepository(repoConfig),
		Revisions:   postgresWiki.NewRevisionRepository(repoConfig),
		Groups:      postgresWiki.NewGroupRepository(repoConfig),
		Bookmarks:   postgresWiki.NewBookmarkRepository(repoConfig),
		Comments:    postgresWiki.NewCommentRepository(repoConfig),
		Attachments: postgresWiki.NewAttachmentRepository(repoConfig),
		Tags:        postgresWiki.NewTagRepository(repoConfig),
		ShareLinks:  postgresWiki.NewShareLinkRepository(repoConfig),
		TxManager:   postgres.NewTransactionManager(pool, logger),
		Logger:      logger,
	}
	svc := wikiService.NewService(deps)

	if _, err := svc.EnsureRootPage(ctx, seedUser); err != nil {
		log.Fatalf("Failed to create top page: %v", err)
	}

	log.Println("📝 Seeding pages...")
	pages := getSeedPages()
	for i, sp := range pages {
		page, err := svc.Create(ctx, seedUser, &wikiSvc.CreatePageRequest{Path: sp.path, Body: sp.body, Grant: sp.grant})
		if errors.Is(err, domain.ErrConflict) {
			log.Printf("⏭️  Skipped %d/%d: %s (already exists)", i+1, len(pages), sp.path)
			continue
		}
		if err != nil {
			log.Printf("❌ Failed to create page '%s': %v", sp.path, err)
			continue
		}
		if len(sp.tags) > 0 {
			if _, err := svc.UpdateTags(ctx, seedUser, page.ID, sp.tags); err != nil {
				log.Printf("❌ Failed to tag page '%s': %v", sp.path, err)
			}
		}
		log.Printf("✅ Created page %d/%d: %s (ID: %s)", i+1, len(pages), page.Path, page.ID)
	}

	if *reindex {
		if err := reindexSearch(ctx, cfg, deps, logger); err != nil {
			log.Fatalf("Failed to rebuild search index: %v", err)
		}
	}

	log.Println("🎉 Seeding complete!")
}

// reindexSearch pushes every live page to Meilisearch.
func reindexSearch(ctx context.Context, cfg *config.Config, deps wikiService.Deps, logger *slog.Logger) error {
	if cfg.MeiliURL == "" {
		return errors.New("MEILI_URL is not set")
	}
	meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey, cfg.MeiliIndex, logger)
	defer meili.Close()
	if !meili.Healthy() {
		return errors.New("meilisearch is unavailable")
	}

	pages, err := deps.Pages.Find(ctx, pagequery.New().
		ExcludeTrashed().
		ExcludeRedirect().
		Sort(pagequery.SortPath, false).
		PopulateForDetail().
		Query())
	if err != nil {
		return err
	}

	n, err := search.NewIndexer(meili, deps.Revisions, deps.Tags, logger).Reindex(ctx, pages)
	if err != nil {
		return err
	}
	log.Printf("🔎 Indexed %d pages", n)
	return nil
}

func getSeedPages() []seedPage {
	return []seedPage{
		{
			path:  "/guide",
			body:  "# Guide\n\nHow this wiki is organised.\n",
			grant: wiki.GrantPublic,
			tags:  []string{"docs"},
		},
		{
			path:  "/guide/_template",
			body:  "# Guide page\n\n## Summary\n\n## Details\n",
			grant: wiki.GrantPublic,
		},
		{
			path:  "/guide/writing",
			body:  "# Writing pages\n\nPages are markdown. Create children by adding path segments.\n",
			grant: wiki.GrantPublic,
			tags:  []string{"docs", "markdown"},
		},
		{
			path:  "/guide/moving",
			body:  "# Moving pages\n\nRenaming a page can leave a redirect behind at the old path.\n",
			grant: wiki.GrantPublic,
			tags:  []string{"docs"},
		},
		{
			path:  "/__template",
			body:  "# New page\n\nStart writing here.\n",
			grant: wiki.GrantPublic,
		},
		{
			path:  "/meetings",
			body:  "# Meetings\n",
			grant: wiki.GrantPublic,
		},
		{
			path:  "/meetings/2024-01-15",
			body:  "# Planning\n\n- Agree on the page layout\n- Move the old docs over\n",
			grant: wiki.GrantPublic,
			tags:  []string{"meeting"},
		},
		{
			path:  "/drafts/roadmap",
			body:  "# Roadmap draft\n\nOnly visible to its author.\n",
			grant: wiki.GrantOwner,
		},
		{
			path:  "/shared/announcement",
			body:  "# Announcement\n\nReachable by link, never listed.\n",
			grant: wiki.GrantRestricted,
		},
	}
}
