package renderer

import "strings"

// Age categories used for voice matching.
const (
	ageChild = "child"
	ageYoung = "young"
	ageAdult = "adult"
	ageElder = "elder"
)

// voice is one entry of the synthesis voice catalog.
type voice struct {
	Name      string
	VoiceType string
	Gender    string
	AgeStage  string
}

// voiceCatalog lists the available synthesis voices. Matching scans in
// order, so the first voice per (gender, age) pair is the canonical pick.
var voiceCatalog = []voice{
	{"甜美教学小源", "qiniu_zh_female_tmjxxy", "female", ageYoung},
	{"校园清新学姐", "qiniu_zh_female_xyqxxj", "female", ageYoung},
	{"邻家辅导学长", "qiniu_zh_male_ljfdxz", "male", ageYoung},
	{"邻家辅导学姐", "qiniu_zh_female_ljfdxx", "female", ageYoung},
	{"温婉学科讲师", "qiniu_zh_female_wwxkjx", "female", ageAdult},
	{"率真校园向导", "qiniu_zh_male_szxyxd", "male", ageYoung},
	{"干练课堂思思", "qiniu_zh_female_glktss", "female", ageAdult},
	{"温和学科小哥", "qiniu_zh_male_whxkxg", "male", ageYoung},
	{"温暖沉稳学长", "qiniu_zh_male_wncwxz", "male", ageYoung},
	{"开朗教学督导", "qiniu_zh_female_kljxdd", "female", ageAdult},
	{"渊博学科男教师", "qiniu_zh_male_ybxknjs", "male", ageAdult},
	{"火力少年凯凯", "qiniu_zh_male_hlsnkk", "male", ageChild},
	{"通用阳光讲师", "qiniu_zh_male_tyygjs", "male", ageAdult},
	{"知性教学女教师", "qiniu_zh_female_zxjxnjs", "female", ageAdult},
	{"慈祥教学顾问", "qiniu_zh_female_cxjxgw", "female", ageElder},
	{"社区教育阿姨", "qiniu_zh_female_sqjyay", "female", ageElder},
	{"动漫樱桃丸子", "qiniu_zh_female_dmytwz", "female", ageChild},
	{"少儿故事配音", "qiniu_zh_female_segsby", "female", ageChild},
	{"轻松懒音绵宝", "qiniu_zh_male_qslymb", "male", ageChild},
	{"活力率真萌仔", "qiniu_zh_male_hllzmz", "male", ageChild},
	{"温婉课件配音", "qiniu_zh_female_wwkjby", "female", ageAdult},
	{"儿童故事熊二", "qiniu_zh_male_etgsxe", "male", ageChild},
	{"古装剧教学版", "qiniu_zh_male_gzjjxb", "male", ageAdult},
	{"磁性课件男声", "qiniu_zh_male_cxkjns", "male", ageAdult},
	{"趣味知识传播", "qiniu_zh_female_qwzscb", "female", ageAdult},
	{"名著角色猴哥", "qiniu_zh_male_mzjsxg", "male", ageAdult},
	{"英语启蒙佩奇", "qiniu_zh_female_yyqmpq", "female", ageChild},
	{"天才少年示范", "qiniu_zh_male_tcsnsf", "male", ageChild},
}

// ageCategory derives the matching age bucket from a numeric age when
// available, falling back to keyword matching on the age stage text.
func ageCategory(age *int, ageStage string) string {
	if age != nil {
		switch {
		case *age < 12:
			return ageChild
		case *age < 25:
			return ageYoung
		case *age >= 60:
			return ageElder
		default:
			return ageAdult
		}
	}
	stage := strings.ToLower(ageStage)
	switch {
	case stage == "":
		return ageAdult
	case strings.Contains(stage, "儿童") || strings.Contains(stage, "少儿") || strings.Contains(stage, ageChild):
		return ageChild
	case strings.Contains(stage, "青年") || strings.Contains(stage, "学生") || strings.Contains(stage, ageYoung):
		return ageYoung
	case strings.Contains(stage, "老年") || strings.Contains(stage, ageElder):
		return ageElder
	default:
		return ageAdult
	}
}

// matchVoice finds a catalog voice for gender and age category: exact match
// first, then gender only, then the given fallback.
func matchVoice(gender string, age *int, ageStage, fallback string) string {
	g := strings.ToLower(gender)
	cat := ageCategory(age, ageStage)

	for _, v := range voiceCatalog {
		if v.Gender == g && v.AgeStage == cat {
			return v.VoiceType
		}
	}
	for _, v := range voiceCatalog {
		if v.Gender == g {
			return v.VoiceType
		}
	}
	return fallback
}
