package models

// Attribution is a web source the model cited while answering with search grounding.
type Attribution struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}
