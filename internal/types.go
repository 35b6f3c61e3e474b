package internal

type PrintFileFormat string

const (
	Format3MF         PrintFileFormat = "3mf"
	FormatGCode       PrintFileFormat = "gcode"
	FormatUnsupported PrintFileFormat = ""
)

type MatchConfidence string

const (
	ConfidenceHigh   MatchConfidence = "high"
	ConfidenceMedium MatchConfidence = "medium"
	ConfidenceLow    MatchConfidence = "low"
)

// Rank orders confidences so callers can compare them; unknown values rank lowest.
func (c MatchConfidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

type FilamentUsage struct {
	Material        *string         `json:"material,omitempty"`
	Type            *string         `json:"type,omitempty"`
	Color           *string         `json:"color,omitempty"`
	ColorHex        *string         `json:"colorHex,omitempty"`
	WeightGrams     float64         `json:"weightGrams"`
	LengthMeters    *float64        `json:"lengthMeters,omitempty"`
	ProductCode     *string         `json:"productCode,omitempty"`
	MatchConfidence MatchConfidence `json:"matchConfidence"`
}

type ParsedPrintFile struct {
	Filename       string          `json:"filename"`
	Format         PrintFileFormat `json:"format,omitempty"`
	ProjectName    *string         `json:"projectName,omitempty"`
	PrintTime      *int            `json:"printTime,omitempty"`
	PrinterModel   *string         `json:"printerModel,omitempty"`
	Slicer         *string         `json:"slicer,omitempty"`
	UsesSupport    *bool           `json:"usesSupport,omitempty"`
	FilamentUsages []FilamentUsage `json:"filamentUsages"`
	ParseErrors    []string        `json:"parseErrors"`
}

func (p ParsedPrintFile) TotalWeightGrams() float64 {
	total := 0.0
	for _, u := range p.FilamentUsages {
		total += u.WeightGrams
	}
	return total
}

type Spool struct {
	ID                 int64    `json:"id"`
	UID                string   `json:"uid"`
	ManufacturerName   string   `json:"manufacturerName"`
	FilamentTypeName   string   `json:"filamentTypeName"`
	MaterialName       string   `json:"materialName"`
	ColorName          string   `json:"colorName"`
	ColorHexCode       string   `json:"colorHexCode"`
	ColorProductCode   *string  `json:"colorProductCode,omitempty"`
	InitialWeightGrams *float64 `json:"initialWeightGrams,omitempty"`
	CurrentWeightGrams *float64 `json:"currentWeightGrams,omitempty"`
	IsEmpty            bool     `json:"isEmpty"`
	LocationName       *string  `json:"storageLocationName,omitempty"`
}

func (s Spool) RemainingGrams() float64 {
	if s.CurrentWeightGrams == nil {
		return 0
	}
	return *s.CurrentWeightGrams
}

type MatchStatus string

type MatchReason string

const (
	MatchFound    MatchStatus = "MATCHED"
	MatchNotFound MatchStatus = "NOT_FOUND"

	ReasonHex         MatchReason = "HEX"
	ReasonProductCode MatchReason = "PRODUCT_CODE"
	ReasonMaterial    MatchReason = "MATERIAL"
	ReasonNone        MatchReason = "NONE"
)

type SpoolMatch struct {
	Spool             Spool       `json:"spool"`
	MatchScore        int         `json:"matchScore"`
	Reason            MatchReason `json:"reason"`
	InsufficientStock bool        `json:"insufficientStock"`
}

type UsageMatch struct {
	Usage           FilamentUsage `json:"usage"`
	Status          MatchStatus   `json:"status"`
	Candidates      []SpoolMatch  `json:"candidates"`
	SelectedSpoolID *int64        `json:"selectedSpoolId"`
}

type Assignment struct {
	SpoolID   int64   `json:"spoolId"`
	GramsUsed float64 `json:"gramsUsed"`
}

type Deduction struct {
	SpoolID             int64   `json:"spoolId"`
	GramsUsed           float64 `json:"gramsUsed"`
	PreviousWeightGrams float64 `json:"previousWeightGrams"`
	NewWeightGrams      float64 `json:"newWeightGrams"`
	MarkEmpty           bool    `json:"markEmpty"`
}

type PrintReport struct {
	RunID   string          `json:"runId"`
	File    ParsedPrintFile `json:"file"`
	Matches []UsageMatch    `json:"matches"`
}

type MessageRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type MatchExportRow struct {
	RunID             string
	Filename          string
	UsageIndex        int
	Material          *string
	Type              *string
	ColorHex          *string
	WeightGrams       float64
	LengthMeters      *float64
	Confidence        string
	MatchStatus       string
	SpoolID           *int64
	SpoolUID          *string
	SpoolColorHex     *string
	SpoolMaterial     *string
	MatchScore        *int
	MatchReason       *string
	InsufficientStock bool
	Candidate2UID     *string
	Candidate2Score   *int
}

type RunRow struct {
	RunID       string
	MessageID   *int
	Filename    string
	Format      string
	ProjectName *string
	PrintTime   *int
	UsageCount  int
	ErrorCount  int
	CreatedAt   string
}
