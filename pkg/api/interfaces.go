package api

// dataLabRequest is the body of the DataLab search trend API.
type dataLabRequest struct {
	StartDate     string                `json:"startDate"`
	EndDate       string                `json:"endDate"`
	TimeUnit      string                `json:"timeUnit"`
	KeywordGroups []dataLabKeywordGroup `json:"keywordGroups"`
}

type dataLabKeywordGroup struct {
	GroupName string   `json:"groupName"`
	Keywords  []string `json:"keywords"`
}

// dataLabResponse carries one result per keyword group.
type dataLabResponse struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	TimeUnit  string `json:"timeUnit"`
	Results   []struct {
		Title    string   `json:"title"`
		Keywords []string `json:"keywords"`
		Data     []struct {
			Period string  `json:"period"`
			Ratio  float64 `json:"ratio"`
		} `json:"data"`
	} `json:"results"`
}

// chatRequest is an OpenAI-compatible chat completion request.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}
