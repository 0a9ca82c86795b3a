package summarize

// Prompt templates for the two completion passes. The %s placeholder carries
// the (length-capped) document text, respectively the generated summary.

const summarySystemPrompt = "You are a senior proposal engineer. You read technical " +
	"specification documents and produce precise executive summaries for bid teams."

const summaryUserPrompt = `Read the technical specification below and write a detailed
executive summary. Cover: the scope of supply, key electrical and mechanical
parameters, applicable standards, testing requirements, delivery conditions, and
any unusual or restrictive clauses a bid team must not miss. Use clear headings.
Do not invent values that are not present in the document.

Document:
---
%s
---`

const tablesSystemPrompt = "You are a data extraction assistant. You turn executive " +
	"summaries of technical specifications into markdown tables."

const tablesUserPrompt = `From the executive summary below, produce exactly two markdown
tables. Start the first with the line "Table #1 - Electrical Parameters" and the
second with the line "Table #2 - Accessories". List every parameter or accessory
mentioned in the summary with its value; leave the value cell empty when the
summary does not state one. Output only the two tables.

Summary:
---
%s
---`
