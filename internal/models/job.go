package models

// JobListItem is one entry of the list endpoint's zpData.jobList.
type JobListItem struct {
	EncryptJobID   string   `json:"encryptJobId"`
	SecurityID     string   `json:"securityId"`
	Lid            string   `json:"lid"`
	JobName        string   `json:"jobName"`
	JobDegree      string   `json:"jobDegree"`     // 学历要求(本科、研究生)
	JobExperience  string   `json:"jobExperience"` // 经验要求(1-3年、3-5年...)
	SalaryDesc     string   `json:"salaryDesc"`
	JobLabels      []string `json:"jobLabels,omitempty"`
	Skills         []string `json:"skills,omitempty"`
	WelfareList    []string `json:"welfareList,omitempty"`
	BrandName      string   `json:"brandName"`
	BrandIndustry  string   `json:"brandIndustry,omitempty"`
	BrandLogo      string   `json:"brandLogo,omitempty"`
	BrandScaleName string   `json:"brandScaleName,omitempty"`
	BrandStageName string   `json:"brandStageName,omitempty"`
	City           int      `json:"city,omitempty"`
	CityName       string   `json:"cityName,omitempty"`
}

type JobListData struct {
	JobList []JobListItem `json:"jobList"`
}

type JobListResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	ZpData  JobListData `json:"zpData"`
}

type JobInfo struct {
	EncryptID       string   `json:"encryptId"`
	EncryptUserID   string   `json:"encryptUserId,omitempty"`
	InvalidStatus   bool     `json:"invalidStatus"`
	JobName         string   `json:"jobName"`
	Position        int      `json:"position,omitempty"`
	PositionName    string   `json:"positionName,omitempty"`
	Location        int      `json:"location,omitempty"`
	LocationName    string   `json:"locationName,omitempty"`
	ExperienceName  string   `json:"experienceName"`
	DegreeName      string   `json:"degreeName"`
	JobType         int      `json:"jobType,omitempty"`
	SalaryDesc      string   `json:"salaryDesc"`
	PayTypeDesc     *string  `json:"payTypeDesc,omitempty"`
	PostDescription string   `json:"postDescription"`
	Address         string   `json:"address,omitempty"`
	Longitude       float64  `json:"longitude,omitempty"`
	Latitude        float64  `json:"latitude,omitempty"`
	ShowSkills      []string `json:"showSkills,omitempty"`
	JobStatusDesc   string   `json:"jobStatusDesc,omitempty"`
}

type BossInfo struct {
	Name           string `json:"name"`
	Title          string `json:"title"`
	ActiveTimeDesc string `json:"activeTimeDesc,omitempty"`
	BossOnline     bool   `json:"bossOnline"`
	BrandName      string `json:"brandName"`
	Certificated   bool   `json:"certificated"`
}

type BrandComInfo struct {
	EncryptBrandID string   `json:"encryptBrandId"`
	BrandName      string   `json:"brandName"`
	Logo           string   `json:"logo,omitempty"`
	StageName      string   `json:"stageName,omitempty"`
	ScaleName      string   `json:"scaleName,omitempty"`
	IndustryName   string   `json:"industryName,omitempty"`
	Introduce      string   `json:"introduce,omitempty"`
	Labels         []string `json:"labels,omitempty"`
}

// JobDetailItem is the zpData of the detail endpoint.
type JobDetailItem struct {
	PageType     int          `json:"pageType"`
	SelfAccess   bool         `json:"selfAccess"`
	SecurityID   string       `json:"securityId"`
	SessionID    *string      `json:"sessionId,omitempty"`
	Lid          string       `json:"lid"`
	JobInfo      JobInfo      `json:"jobInfo"`
	BossInfo     BossInfo     `json:"bossInfo"`
	BrandComInfo BrandComInfo `json:"brandComInfo"`
}

type JobDetailResponse struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	ZpData  JobDetailItem `json:"zpData"`
}
