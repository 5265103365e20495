package postgres

// Schema creates every table and index the store needs. All statements are
// idempotent.
//
// Relationships carry the endpoint pair in canonical order (pair_a <= pair_b)
// so that an edge and its reverse collide on the unique constraint.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    content TEXT NOT NULL,
    category TEXT NOT NULL,
    importance DOUBLE PRECISION NOT NULL,
    decay_rate DOUBLE PRECISION NOT NULL,
    confidence DOUBLE PRECISION NOT NULL,
    source_kind TEXT NOT NULL,
    source_id TEXT,
    source_date TIMESTAMPTZ NOT NULL,
    last_accessed TIMESTAMPTZ,
    expires_at TIMESTAMPTZ,
    related_entities JSONB NOT NULL DEFAULT '[]',
    tags TEXT[],
    deleted BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memories_owner ON memories(owner_id, deleted, category);
CREATE INDEX IF NOT EXISTS idx_memories_tags ON memories USING GIN(tags);

CREATE TABLE IF NOT EXISTS entities (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    type TEXT NOT NULL,
    value TEXT NOT NULL,
    normalized TEXT,
    confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    source TEXT,
    context TEXT,
    is_identity BOOLEAN NOT NULL DEFAULT FALSE,
    match_confidence DOUBLE PRECISION,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entities_owner_type ON entities(owner_id, type);
CREATE INDEX IF NOT EXISTS idx_entities_identity ON entities(owner_id) WHERE is_identity;

CREATE TABLE IF NOT EXISTS aliases (
    seq BIGSERIAL PRIMARY KEY,
    owner_id TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_value TEXT NOT NULL,
    alias TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_aliases_unique
    ON aliases(owner_id, entity_type, lower(entity_value), lower(alias));

CREATE TABLE IF NOT EXISTS merge_suggestions (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    entity1_id TEXT NOT NULL,
    entity2_id TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    confidence DOUBLE PRECISION NOT NULL,
    reason TEXT,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMPTZ NOT NULL,
    reviewed_at TIMESTAMPTZ,
    UNIQUE(owner_id, entity1_id, entity2_id)
);

CREATE INDEX IF NOT EXISTS idx_merge_suggestions_status ON merge_suggestions(owner_id, status);

CREATE TABLE IF NOT EXISTS relationships (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    source_id TEXT NOT NULL,
    target_id TEXT NOT NULL,
    pair_a TEXT NOT NULL,
    pair_b TEXT NOT NULL,
    type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    evidence TEXT,
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE(owner_id, pair_a, pair_b, type)
);

CREATE INDEX IF NOT EXISTS idx_relationships_owner_type ON relationships(owner_id, type);
`
