package config

import (
	"fmt"
	"net/url"
)

type SiteURLs struct {
	HomePage   string
	SearchPage string
	JobList    string
	JobDetail  string
	// JobPage prefixes "<encryptId>.html" to link a posting.
	JobPage string
}

type Site struct {
	Name string
	URLs SiteURLs
	//File name of the stored browser session, relative to the data dir
	AuthFile string
}

var sites = map[string]Site{
	"ZHIPIN": {
		Name: "ZHIPIN",
		URLs: SiteURLs{
			HomePage:   "https://www.zhipin.com/?ka=header-home-logo",
			SearchPage: "https://www.zhipin.com/web/geek/jobs",
			JobList:    "https://www.zhipin.com/wapi/zpgeek/search/joblist.json",
			JobDetail:  "https://www.zhipin.com/wapi/zpgeek/job/detail.json",
			JobPage:    "https://www.zhipin.com/job_detail/",
		},
		AuthFile: "auth_zhipin.json",
	},
}

func LookupSite(name string) (Site, error) {
	site, ok := sites[name]
	if !ok {
		return Site{}, fmt.Errorf("%w: %q", ErrUnknownSite, name)
	}
	return site, nil
}

// SearchURL is the search page opened for a city.
func (s Site) SearchURL(cityCode string) string {
	if cityCode == "" {
		return s.URLs.SearchPage
	}
	return s.URLs.SearchPage + "?" + url.Values{"city": {cityCode}}.Encode()
}

// JobURL links the public page of a posting.
func (s Site) JobURL(encryptID string) string {
	return s.URLs.JobPage + encryptID + ".html"
}

var Cities = map[string]string{
	"北京": "101010100",
	"上海": "101020100",
	"深圳": "101280600",
	"广州": "101280100",
	"杭州": "101210100",
	"成都": "101270100",
	"南京": "101190100",
	"武汉": "101200100",
	"西安": "101110100",
	"苏州": "101190400",
}

func CityCode(name string) (string, error) {
	code, ok := Cities[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCity, name)
	}
	return code, nil
}

// DefaultDegrees maps the user's degree to the posting degrees it satisfies.
var DefaultDegrees = map[string][]string{
	"本科": {"本科", "学士", "学历不限"},
	"硕士": {"本科", "硕士", "研究生", "学历不限"},
	"博士": {"本科", "硕士", "博士", "博士后", "学历不限"},
	"大专": {"大专", "学历不限"},
}

// DegreeChoices is the order degrees are offered in when prompting.
var DegreeChoices = []string{"本科", "硕士", "博士"}

var DefaultSalaryChoices = []string{
	"20-30K",
	"30-50K",
	"50-100K",
}

// Job titles containing any of these are dropped
var DefaultExcludeKeywords = []string{
	"产品",
	"运营",
	"市场",
	"销售",
	"技术支持",
	"客服",
	"行政",
	"财务",
	"实习",
}
