package types

// ResumeData is the structured form of a resume produced by the AI structuring step.
type ResumeData struct {
	Name       string       `json:"name"`
	Email      *string      `json:"email"`
	Phone      *string      `json:"phone"`
	Skills     []string     `json:"skills"`
	Experience []Experience `json:"experience"`
	Education  []Education  `json:"education"`
	Projects   []Project    `json:"projects"`
}

// Experience is a single role held by the candidate.
type Experience struct {
	Company     string `json:"company"`
	Role        string `json:"role"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

// Education is a single degree or program.
type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Year        string `json:"year"`
}

// Project is a side or portfolio project.
type Project struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tech        []string `json:"tech"`
}
