package cypher

import (
	"fmt"

	"github.com/graphrag-chat/backend/pkg/common"
	"github.com/graphrag-chat/backend/pkg/fulltext"
	"github.com/graphrag-chat/backend/pkg/logger"
	"github.com/graphrag-chat/backend/pkg/store"
)

func indexStatement(d fulltext.Dialect) Statement {
	if d == fulltext.RediSearch {
		return Statement{Query: fmt.Sprintf(
			"CALL db.idx.fulltext.createNodeIndex('%s', 'id')", common.EntityLabel)}
	}
	return Statement{Query: fmt.Sprintf(
		"CREATE FULLTEXT INDEX %s IF NOT EXISTS FOR (e:%s) ON EACH [e.id]",
		common.EntityIndexName, common.EntityLabel)}
}

func neighborhoodStatement(d fulltext.Dialect, query string, matchLimit, tripleLimit int) Statement {
	var lookup string
	if d == fulltext.RediSearch {
		lookup = fmt.Sprintf(
			"CALL db.idx.fulltext.queryNodes('%s', $query) YIELD node WITH node LIMIT %d",
			common.EntityLabel, matchLimit)
	} else {
		lookup = fmt.Sprintf(
			"CALL db.index.fulltext.queryNodes('%s', $query, {limit: %d}) YIELD node",
			common.EntityIndexName, matchLimit)
	}
	return Statement{
		Query: lookup + fmt.Sprintf(`
MATCH (node)-[r]-(neighbor)
WHERE type(r) <> '%s'
RETURN DISTINCT startNode(r).id AS source, type(r) AS relation, endNode(r).id AS target
LIMIT %d`, common.MentionsRelation, tripleLimit),
		Params: map[string]any{"query": query},
	}
}

func hasDocumentStatement(source string) Statement {
	return Statement{
		Query:  fmt.Sprintf("MATCH (d:%s {source: $source}) RETURN count(d) AS count", common.DocumentLabel),
		Params: map[string]any{"source": source},
	}
}

func deleteDocumentStatements(source string) []Statement {
	params := map[string]any{"source": source}
	return []Statement{
		{
			Query: fmt.Sprintf("MATCH (doc:%s {source: $source})-[:%s]->(entity) DETACH DELETE entity",
				common.DocumentLabel, common.MentionsRelation),
			Params: params,
		},
		{
			Query:  fmt.Sprintf("MATCH (doc:%s {source: $source}) DETACH DELETE doc", common.DocumentLabel),
			Params: params,
		},
	}
}

func deleteAllStatement() Statement {
	return Statement{Query: "MATCH (n) DETACH DELETE n"}
}

// documentStatements renders the upserts for one graph document: the entity
// nodes, the relationships, then the Document node and its MENTIONS links.
// Backends without transactions may stop halfway; writing the Document last
// keeps a partially written source from passing HasDocument.
func documentStatements(doc common.GraphDocument, opts store.AddOptions) []Statement {
	var stmts []Statement

	for _, n := range doc.Nodes {
		if n.ID == "" {
			continue
		}
		stmts = append(stmts, nodeStatement(n, opts))
	}

	for _, rel := range doc.Relationships {
		relType := store.SanitizeLabel(rel.Type)
		if rel.Source.ID == "" || rel.Target.ID == "" || relType == "" {
			logger.Warn("[Store] Dropping relationship",
				"source", rel.Source.ID, "type", rel.Type, "target", rel.Target.ID)
			continue
		}
		stmts = append(stmts, Statement{
			Query: fmt.Sprintf("MATCH (s%s {id: $source}), (t%s {id: $target}) MERGE (s)-[r:%s]->(t)",
				nodeLabel(rel.Source, opts), nodeLabel(rel.Target, opts), quote(relType)),
			Params: map[string]any{"source": rel.Source.ID, "target": rel.Target.ID},
		})
	}

	if !opts.IncludeSource {
		return stmts
	}

	stmts = append(stmts, Statement{
		Query: fmt.Sprintf("MERGE (d:%s {id: $id}) SET d.source = $source, d.text = $text",
			common.DocumentLabel),
		Params: map[string]any{
			"id":     doc.Source.ID,
			"source": doc.Source.Source,
			"text":   doc.Source.Text,
		},
	})
	for _, n := range doc.Nodes {
		if n.ID == "" {
			continue
		}
		stmts = append(stmts, Statement{
			Query: fmt.Sprintf("MATCH (d:%s {id: $doc}), (e%s {id: $id}) MERGE (d)-[:%s]->(e)",
				common.DocumentLabel, nodeLabel(n, opts), common.MentionsRelation),
			Params: map[string]any{"doc": doc.Source.ID, "id": n.ID},
		})
	}
	return stmts
}

// quote wraps a sanitized label in backticks.
func quote(label string) string {
	return "`" + label + "`"
}

// nodeLabel is the label a node is matched by: the base entity label when
// enabled, its type label otherwise.
func nodeLabel(n common.Node, opts store.AddOptions) string {
	if opts.BaseEntityLabel {
		return ":" + common.EntityLabel
	}
	if l := store.SanitizeLabel(n.Type); l != "" {
		return ":" + quote(l)
	}
	return ""
}

func nodeStatement(n common.Node, opts store.AddOptions) Statement {
	params := map[string]any{"id": n.ID}
	typeLabel := store.SanitizeLabel(n.Type)

	var q string
	if opts.BaseEntityLabel {
		q = fmt.Sprintf("MERGE (e:%s {id: $id})", common.EntityLabel)
		if typeLabel != "" {
			q += " SET e:" + quote(typeLabel)
		}
	} else {
		q = fmt.Sprintf("MERGE (e%s {id: $id})", nodeLabel(n, opts))
	}
	if len(n.Properties) > 0 {
		q += " SET e += $props"
		params["props"] = n.Properties
	}
	return Statement{Query: q, Params: params}
}
