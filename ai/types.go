package ai

// Passage is one retrieved chunk handed to an AnswerGenerator as context.
// Fields mirror the chunk's extracted metadata; empty strings mean the
// attribute was never extracted.
type Passage struct {
	// Source identifies where the passage came from, usually a file path.
	Source string

	// Author is the extracted author attribution, if any.
	Author string

	// Date is the extracted date text, if any.
	Date string

	// Text is the passage content.
	Text string
}

// Answer is the result of answering a question over retrieved passages.
type Answer struct {
	// Answer is the generated answer text.
	Answer string

	// Confidence estimates how well the context supported the answer,
	// in [0, 1]. Derived from retrieval similarity, not from the model.
	Confidence float64

	// Sources lists the passages the answer drew on, most relevant first.
	Sources []Source
}

// Source attributes part of an answer to a retrieved passage.
type Source struct {
	// Source identifies the originating document.
	Source string

	// Author is the passage's extracted author, if any.
	Author string

	// Date is the passage's extracted date, if any.
	Date string

	// Similarity is the retrieval similarity of the passage to the question.
	Similarity float64

	// Excerpt is the leading portion of the passage text.
	Excerpt string
}
