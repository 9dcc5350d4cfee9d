package store

// Posts are append-only: (platform, external_id) is indexed for lookups but
// not unique, so an item seen in several cycles is stored once per cycle.
const schema = `
CREATE TABLE IF NOT EXISTS posts (
    id               TEXT PRIMARY KEY,
    platform         TEXT NOT NULL,
    external_id      TEXT,
    content          TEXT NOT NULL DEFAULT '',
    author           TEXT,
    url              TEXT,
    occurred_at      DATETIME NOT NULL,
    meta             TEXT NOT NULL DEFAULT '{}',
    hazard_type      TEXT NOT NULL,
    hazard_matched   BOOLEAN NOT NULL DEFAULT 0,
    location         TEXT NOT NULL,
    location_matched BOOLEAN NOT NULL DEFAULT 0,
    source           TEXT NOT NULL DEFAULT '',
    ingested_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posts_platform_external ON posts(platform, external_id);
CREATE INDEX IF NOT EXISTS idx_posts_occurred_at ON posts(occurred_at);
CREATE INDEX IF NOT EXISTS idx_posts_ingested_at ON posts(ingested_at);
CREATE INDEX IF NOT EXISTS idx_posts_hazard ON posts(hazard_type);
CREATE INDEX IF NOT EXISTS idx_posts_location ON posts(location);

CREATE TABLE IF NOT EXISTS digests (
    id           TEXT PRIMARY KEY,
    summary_text TEXT NOT NULL,
    generated_at DATETIME NOT NULL,
    num_posts    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_digests_generated ON digests(generated_at);
`
