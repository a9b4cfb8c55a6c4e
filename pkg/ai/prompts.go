package ai

// EntityExtractSystemPrompt asks for person and organization names as a JSON
// object with the single key "res".
const EntityExtractSystemPrompt = `从文本中提取 organization 和 person 实体，并返回 JSON 格式的输出。
只返回一个 JSON 对象, 唯一的键为 "res", 值为文本中出现的所有实体名称 (人名和组织名) 组成的字符串列表。
例如: {"res": ["张三", "北京大学"]}
不要输出任何其他内容。`

// EntityExtractUserPrompt wraps the question. %s is the question.
const EntityExtractUserPrompt = `从以下内容中提取信息 input: %s`

// CondensePrompt rewrites a follow-up into a standalone question.
// The first %s is the rendered chat history, the second the follow-up.
const CondensePrompt = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question,
in its original language.
Chat History:
%s
Follow Up Input: %s
Standalone question:`

// AnswerPrompt is used for the final generation when retrieval is enabled.
// The first %s is the retrieval context, the second the user question.
const AnswerPrompt = `根据以下文档和提问, 回答问题：
%s

问题：%s
使用中文回答!语言生动且简洁!。
答案：`

// GraphExtractPrompt turns one chunk into nodes and relationships.
// %s is the chunk text.
const GraphExtractPrompt = `
# Task Context
You are a top-tier algorithm designed for extracting information in structured formats to build a knowledge graph.
Capture as much information from the text as possible without adding anything that is not explicitly stated.

# Detailed Task Description & Rules
## Nodes
- Nodes represent entities and concepts, mainly persons and organizations, but also places, events and products when they are clearly named.
- **id:** the name of the entity exactly as it appears in the text, in the language of the text. Never use integers or invented identifiers.
- **type:** an elementary, general label such as "Person", "Organization", "Location", "Event" or "Product". Prefer "Person" over "Mathematician".
- When an entity is mentioned several times with different names or pronouns, always use the most complete name as id.

## Relationships
- Relationships connect two nodes from the node list.
- **type:** a general and timeless relation name written in UPPER_SNAKE_CASE, for example "WORKS_AT", "FOUNDED", "LOCATED_IN". Avoid specific or momentary types like "BECAME_PROFESSOR".
- **source / target:** ids of nodes that appear in the node list, with **source_type / target_type** their node types.

# Text
%s

# Output Formatting
Return a single JSON object:
{
  "nodes": [{"id": "string", "type": "string"}],
  "relationships": [{"source": "string", "source_type": "string", "target": "string", "target_type": "string", "type": "string"}]
}
Use empty arrays when nothing can be extracted. Do not include any commentary outside of the JSON.
`
