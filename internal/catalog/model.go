// Package catalog holds the question and skill inventory the engine
// draws from: skills grouped by certification, questions with their
// answer keys, and the career-path to certification mapping.
package catalog

type Skill struct {
	ID                int64  `json:"id"`
	Code              string `json:"code"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	Subcategory       string `json:"subcategory,omitempty"`
	ParentID          *int64 `json:"parentId,omitempty"`
	CertificationCode string `json:"certificationCode,omitempty"`
	Status            string `json:"status"`
}

type Option struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

type Question struct {
	ID         int64    `json:"id"`
	Text       string   `json:"text"`
	Options    []Option `json:"options"`
	Difficulty int      `json:"difficulty"`
}

// CorrectIndices returns the positions of the correct options.
func (q Question) CorrectIndices() []int {
	var idx []int
	for i, o := range q.Options {
		if o.Correct {
			idx = append(idx, i)
		}
	}
	return idx
}

// Public strips answer information for delivery to clients.
func (q Question) Public() PublicQuestion {
	opts := make([]string, len(q.Options))
	for i, o := range q.Options {
		opts[i] = o.Text
	}
	return PublicQuestion{ID: q.ID, Text: q.Text, Options: opts, Difficulty: q.Difficulty}
}

type PublicQuestion struct {
	ID         int64    `json:"id"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
	Difficulty int      `json:"difficulty"`
}
