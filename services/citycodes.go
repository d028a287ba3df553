package services

import "strings"

// cityAliases strips administrative suffix variants so "北京市" and "北京"
// resolve identically.
var cityAliases = map[string]string{
	"北京市": "北京",
	"上海市": "上海",
	"广州市": "广州",
	"深圳市": "深圳",
	"西安市": "西安",
	"成都市": "成都",
	"重庆市": "重庆",
	"杭州市": "杭州",
	"南京市": "南京",
	"武汉市": "武汉",
	"天津市": "天津",
}

// cityCodeMap maps city names to IATA city codes for flight search.
var cityCodeMap = map[string]string{
	"北京":   "BJS",
	"上海":   "SHA",
	"广州":   "CAN",
	"深圳":   "SZX",
	"成都":   "CTU",
	"重庆":   "CKG",
	"西安":   "SIA",
	"杭州":   "HGH",
	"南京":   "NKG",
	"武汉":   "WUH",
	"天津":   "TSN",
	"长沙":   "CSX",
	"青岛":   "TAO",
	"厦门":   "XMN",
	"昆明":   "KMG",
	"郑州":   "CGO",
	"沈阳":   "SHE",
	"大连":   "DLC",
	"哈尔滨":  "HRB",
	"长春":   "CGQ",
	"乌鲁木齐": "URC",
	"兰州":   "LHW",
	"西宁":   "XNN",
	"银川":   "INC",
	"呼和浩特": "HET",
	"太原":   "TYN",
	"石家庄":  "SJW",
	"济南":   "TNA",
	"合肥":   "HFE",
	"南昌":   "KHN",
	"福州":   "FOC",
	"宁波":   "NGB",
	"温州":   "WNZ",
	"贵阳":   "KWE",
	"南宁":   "NNG",
	"桂林":   "KWL",
	"珠海":   "ZUH",
	"三亚":   "SYX",
	"海口":   "HAK",
	"拉萨":   "LXA",
	"香港":   "HKG",
	"澳门":   "MFM",
}

// LocationResolver maps human-entered place names onto provider addressing
// schemes. Flight codes resolve locally against the static table; rail
// station codes are provider-defined and resolved remotely by RailClient.
type LocationResolver struct{}

func NewLocationResolver() *LocationResolver {
	return &LocationResolver{}
}

// ToIATACityCode resolves a city name or code to an uppercase 3-letter IATA
// city code. ok=false means the name is not in the table — callers decide
// whether that is fatal.
func (r *LocationResolver) ToIATACityCode(nameOrCode string) (string, bool) {
	s := strings.TrimSpace(nameOrCode)
	if s == "" {
		return "", false
	}

	// Already a code: pass through unchanged.
	if len(s) == 3 && isAlpha(s) {
		return strings.ToUpper(s), true
	}

	if alias, ok := cityAliases[s]; ok {
		s = alias
	}
	code, ok := cityCodeMap[s]
	if !ok {
		return "", false
	}
	return strings.ToUpper(code), true
}

func isAlpha(s string) bool {
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
