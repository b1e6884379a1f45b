package dto

// UsageResponse is the dashboard view of the current month: what the user
// has consumed against the plan's caps.
type UsageResponse struct {
	Plan                string `json:"plan"`
	PlanName            string `json:"planName"`
	MonthYear           string `json:"monthYear"`
	CharactersUsed      int    `json:"charactersUsed"`
	CharacterLimit      int    `json:"characterLimit"` // -1 = unlimited
	RemainingCharacters int    `json:"remainingCharacters"`
	APICalls            int    `json:"apiCalls"`
	APICallLimit        int    `json:"apiCallLimit"` // -1 = unlimited
	ArtifactsGenerated  int    `json:"artifactsGenerated"`
}
