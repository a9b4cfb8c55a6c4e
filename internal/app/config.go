package app

import (
	"fmt"
	"slices"
	"time"

	"github.com/graphrag-chat/backend/internal/storage"
	"github.com/graphrag-chat/backend/internal/util"
	"github.com/graphrag-chat/backend/pkg/chunk"
	"github.com/graphrag-chat/backend/pkg/graph"
	"github.com/graphrag-chat/backend/pkg/query"
	"github.com/graphrag-chat/backend/pkg/vector"
)

const (
	AdapterOpenAI = "openai"
	AdapterOllama = "ollama"

	GraphNeo4j    = "neo4j"
	GraphFalkorDB = "falkordb"
	GraphMemory   = "memory"

	VectorLocal    = "local"
	VectorPgvector = "pgvector"
	VectorNone     = "none"

	UploadLocal = "local"
	UploadS3    = "s3"

	IngestInline = "inline"
	IngestQueue  = "queue"
)

type AIConfig struct {
	Adapter          string
	ChatModel        string
	ExtractModel     string
	EmbedModel       string
	ChatURL          string
	ChatKey          string
	EmbedURL         string
	EmbedKey         string
	Temperature      float64
	Dimensions       int
	ParallelRequests int64
}

type GraphConfig struct {
	Backend       string
	Neo4jURI      string
	Neo4jUsername string
	Neo4jPassword string
	Neo4jDatabase string
	FalkorDBURL   string
	Fuzzy         bool
	MatchLimit    int
	TripleLimit   int
}

type VectorConfig struct {
	Backend      string
	Path         string
	DatabaseURL  string
	TopK         int
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	Parallel     int
}

type IngestConfig struct {
	Splitter     string
	ChunkSize    int
	ChunkOverlap int
	Workers      int
	MaxRetries   int
}

type ServerConfig struct {
	Port          string
	CORSOrigins   []string
	UploadBackend string
	UploadDir     string
	S3            storage.S3Config
	IngestMode    string
	GraphOnUpload bool
	SystemPrompt  string
}

type QueueConfig struct {
	User     string
	Password string
	Host     string
	Port     string
}

func (q QueueConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", q.User, q.Password, q.Host, q.Port)
}

type Config struct {
	AI     AIConfig
	Graph  GraphConfig
	Vector VectorConfig
	Ingest IngestConfig
	Server ServerConfig
	Queue  QueueConfig

	LLMTimeout   time.Duration
	StoreTimeout time.Duration
	// LockRedisURL selects the Redis lease lock. Empty means in-process locks.
	LockRedisURL string
	Debug        bool
}

// LoadConfig reads the configuration from the environment. Call
// util.LoadEnv first to pick up a .env file.
func LoadConfig() Config {
	splitter := util.GetEnvString("INGEST_SPLITTER", chunk.ModeCharacter)
	size, overlap := chunk.DefaultCharacterSize, chunk.DefaultCharacterOverlap
	if splitter == chunk.ModeToken {
		size, overlap = chunk.DefaultTokenSize, chunk.DefaultTokenOverlap
	}

	return Config{
		AI: AIConfig{
			Adapter:          util.GetEnvString("AI_ADAPTER", AdapterOpenAI),
			ChatModel:        util.GetEnvString("AI_CHAT_MODEL", "gpt-4o-mini"),
			ExtractModel:     util.GetEnv("AI_EXTRACT_MODEL"),
			EmbedModel:       util.GetEnvString("AI_EMBED_MODEL", "text-embedding-3-small"),
			ChatURL:          util.GetEnv("AI_CHAT_URL"),
			ChatKey:          util.GetEnv("AI_CHAT_KEY"),
			EmbedURL:         util.GetEnv("AI_EMBED_URL"),
			EmbedKey:         util.GetEnv("AI_EMBED_KEY"),
			Temperature:      util.GetEnvNumeric("AI_TEMPERATURE", 0),
			Dimensions:       util.GetEnvInt("AI_EMBED_DIMENSIONS", 0),
			ParallelRequests: int64(util.GetEnvInt("AI_PARALLEL_REQ", 15)),
		},
		Graph: GraphConfig{
			Backend:       util.GetEnvString("GRAPH_BACKEND", GraphNeo4j),
			Neo4jURI:      util.GetEnvString("NEO4J_URI", "neo4j://localhost:7687"),
			Neo4jUsername: util.GetEnvString("NEO4J_USERNAME", "neo4j"),
			Neo4jPassword: util.GetEnv("NEO4J_PASSWORD"),
			Neo4jDatabase: util.GetEnv("NEO4J_DATABASE"),
			FalkorDBURL:   util.GetEnvString("FALKORDB_URL", "falkordb://localhost:6379/rag"),
			Fuzzy:         util.GetEnvBool("GRAPH_FUZZY", true),
			MatchLimit:    util.GetEnvInt("GRAPH_MATCH_LIMIT", query.DefaultMatchLimit),
			TripleLimit:   util.GetEnvInt("GRAPH_TRIPLE_LIMIT", query.DefaultTripleLimit),
		},
		Vector: VectorConfig{
			Backend:      util.GetEnvString("VECTOR_BACKEND", VectorLocal),
			Path:         util.GetEnvString("VECTOR_PATH", "data/vector"),
			DatabaseURL:  util.GetEnv("DATABASE_URL"),
			TopK:         util.GetEnvInt("RAG_TOP_K", query.DefaultTopK),
			ChunkSize:    util.GetEnvInt("RAG_CHUNK_SIZE", vector.DefaultChunkSize),
			ChunkOverlap: util.GetEnvInt("RAG_CHUNK_OVERLAP", vector.DefaultChunkOverlap),
			BatchSize:    util.GetEnvInt("RAG_EMBED_BATCH", 32),
			Parallel:     util.GetEnvInt("RAG_EMBED_PARALLEL", 4),
		},
		Ingest: IngestConfig{
			Splitter:     splitter,
			ChunkSize:    util.GetEnvInt("INGEST_CHUNK_SIZE", size),
			ChunkOverlap: util.GetEnvInt("INGEST_CHUNK_OVERLAP", overlap),
			Workers:      util.GetEnvInt("INGEST_WORKERS", graph.DefaultWorkers),
			MaxRetries:   util.GetEnvInt("MAX_RETRIES", graph.DefaultMaxRetries),
		},
		Server: ServerConfig{
			Port:          util.GetEnvString("PORT", "8080"),
			CORSOrigins:   util.GetEnvList("CORS_ORIGINS", []string{"*"}),
			UploadBackend: util.GetEnvString("UPLOAD_BACKEND", UploadLocal),
			UploadDir:     util.GetEnvString("UPLOAD_DIR", "data/knowledge_base"),
			S3: storage.S3Config{
				Region:    util.GetEnvString("AWS_REGION", "us-east-1"),
				Endpoint:  util.GetEnv("AWS_ENDPOINT"),
				AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
				SecretKey: util.GetEnv("AWS_SECRET_KEY"),
				Bucket:    util.GetEnv("AWS_BUCKET"),
				Prefix:    util.GetEnvString("AWS_PREFIX", "knowledge_base"),
			},
			IngestMode:    util.GetEnvString("INGEST_MODE", IngestInline),
			GraphOnUpload: util.GetEnvBool("GRAPH_ON_UPLOAD", false),
			SystemPrompt:  util.GetEnv("SYSTEM_PROMPT"),
		},
		Queue: QueueConfig{
			User:     util.GetEnvString("RABBITMQ_USER", "guest"),
			Password: util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
			Host:     util.GetEnvString("RABBITMQ_HOST", "localhost"),
			Port:     util.GetEnvString("RABBITMQ_PORT", "5672"),
		},
		LLMTimeout:   util.GetEnvDuration("LLM_TIMEOUT", graph.DefaultLLMTimeout),
		StoreTimeout: util.GetEnvDuration("STORE_TIMEOUT", graph.DefaultStoreTimeout),
		LockRedisURL: util.GetEnv("LOCK_REDIS_URL"),
		Debug:        util.GetEnvBool("DEBUG", false),
	}
}

// Validate rejects unknown backend names before anything is connected.
func (c Config) Validate() error {
	checks := []struct {
		key     string
		value   string
		allowed []string
	}{
		{"AI_ADAPTER", c.AI.Adapter, []string{AdapterOpenAI, AdapterOllama}},
		{"GRAPH_BACKEND", c.Graph.Backend, []string{GraphNeo4j, GraphFalkorDB, GraphMemory}},
		{"VECTOR_BACKEND", c.Vector.Backend, []string{VectorLocal, VectorPgvector, VectorNone}},
		{"INGEST_SPLITTER", c.Ingest.Splitter, []string{chunk.ModeCharacter, chunk.ModeToken}},
		{"UPLOAD_BACKEND", c.Server.UploadBackend, []string{UploadLocal, UploadS3}},
		{"INGEST_MODE", c.Server.IngestMode, []string{IngestInline, IngestQueue}},
	}
	for _, check := range checks {
		if !slices.Contains(check.allowed, check.value) {
			return fmt.Errorf("invalid %s %q, expected one of %v", check.key, check.value, check.allowed)
		}
	}
	if c.Vector.Backend == VectorPgvector && c.Vector.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the pgvector backend")
	}
	return nil
}
