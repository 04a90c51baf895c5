package index

// Posting records the occurrences of one term in one corpus document.
// Doc is the document's ordinal in the Corpus.
type Posting struct {
	Doc       int
	Frequency int
	Positions []int
}

type PostingList []Posting
