package models

// ClothingIn is the body of a new catalog item. Image carries a data URL for JSON submissions,
// multipart submissions attach a file instead.
type ClothingIn struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Category string  `json:"category" validate:"required,category"`
	Color    string  `json:"color" validate:"required,color"`
	Size     *string `json:"size" validate:"omitempty,max=50"`
	Brand    *string `json:"brand" validate:"omitempty,max=100"`
	Notes    *string `json:"notes" validate:"omitempty,max=500"`
	Pattern  string  `json:"pattern" validate:"omitempty,pattern"`
	Material string  `json:"material" validate:"omitempty,material"`
	Style    string  `json:"style" validate:"omitempty,style"`
	Fit      string  `json:"fit" validate:"omitempty,fit"`
	Gender   string  `json:"gender" validate:"omitempty,gender"`
	Season   RawList `json:"season" validate:"omitempty,season"`
	Occasion RawList `json:"occasion" validate:"omitempty,occasion"`
	Features RawList `json:"features" validate:"omitempty,features"`
	Image    string  `json:"image"`
	AutoTag  bool    `json:"auto_tag"`
}

// ClothingUpdateIn only carries the fields the client sent.
type ClothingUpdateIn struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	Category *string `json:"category" validate:"omitempty,min=1,category"`
	Color    *string `json:"color" validate:"omitempty,min=1,color"`
	Size     *string `json:"size" validate:"omitempty,max=50"`
	Brand    *string `json:"brand" validate:"omitempty,max=100"`
	Notes    *string `json:"notes" validate:"omitempty,max=500"`
	Pattern  *string `json:"pattern" validate:"omitempty,pattern"`
	Material *string `json:"material" validate:"omitempty,material"`
	Style    *string `json:"style" validate:"omitempty,style"`
	Fit      *string `json:"fit" validate:"omitempty,fit"`
	Gender   *string `json:"gender" validate:"omitempty,gender"`
	Season   RawList `json:"season" validate:"omitempty,season"`
	Occasion RawList `json:"occasion" validate:"omitempty,occasion"`
	Features RawList `json:"features" validate:"omitempty,features"`
	Image    *string `json:"image"`
	AutoTag  bool    `json:"auto_tag"`
}

type ClothingFilter struct {
	Category string `query:"category"`
	Color    string `query:"color"`
	Search   string `query:"search"`
	Season   string `query:"season"`
	Occasion string `query:"occasion"`
}

type OutfitSuggestIn struct {
	Occasion   string `json:"occasion"`
	ExcludeIDs []uint `json:"exclude_ids"`
}

type AIOutfitSuggestIn struct {
	Query string `json:"query"`
}

type AnalyzeImageIn struct {
	Image string `json:"image"`
}

type TryOnIn struct {
	UserImage   string `json:"userImage"`
	ClothingIDs []uint `json:"clothingIds"`
	Prompt      string `json:"prompt"`
}
