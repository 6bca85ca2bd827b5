package models

// Article is a static knowledge-base entry.
type Article struct {
	Category string `yaml:"category" json:"category"`
	Title    string `yaml:"title" json:"title"`
	Content  string `yaml:"content" json:"content"`
}

// Resource is a static support resource such as a hotline or website.
type Resource struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Type        string `yaml:"type" json:"type"`
	Link        string `yaml:"link" json:"link"`
}
