package request

type CreateNewsArticle struct {
	Slug    string `json:"slug" validate:"required,slug"`
	Title   string `json:"title" validate:"required,max=200"`
	Summary string `json:"summary" validate:"required,max=500"`
	Body    string `json:"body" validate:"required"`
}

type UpdateNewsArticle struct {
	Title   string `json:"title" validate:"required,max=200"`
	Summary string `json:"summary" validate:"required,max=500"`
	Body    string `json:"body" validate:"required"`
}

type SetNewsPublished struct {
	Published bool `json:"published"`
}
