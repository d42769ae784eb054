package draft

import "strings"

// Phrase pools for the locally composed letter. Placeholders are filled by
// fill.
var (
	subjects = [...]string{
		"Complaint regarding {category} issue in {region}",
		"Urgent: {category} problem in {region}",
		"Request for immediate action on {category} issue",
		"Complaint about {category} services in {region}",
		"Report of {category} issue requiring attention",
	}

	openings = [...]string{
		"Dear {category} Department,",
		"To the {category} Department,",
		"Respected {category} Department,",
		"Dear Sir/Madam of {category} Department,",
		"To Whom It May Concern,",
	}

	urgencies = [...]string{
		"requires immediate attention",
		"needs urgent intervention",
		"demands prompt action",
		"calls for immediate resolution",
		"requires your immediate attention",
	}

	impacts = [...]string{
		"This issue is affecting the daily lives of residents in our area and requires prompt action from your department.",
		"The situation is causing significant inconvenience to the local community and needs immediate resolution.",
		"This problem is impacting the quality of life for residents and requires urgent attention.",
		"The issue is creating difficulties for the neighborhood and needs prompt intervention.",
		"This matter is affecting public welfare and requires immediate action from your department.",
	}

	closings = [...]string{
		"I kindly request you to investigate this matter and take necessary steps to resolve it at the earliest.",
		"I would appreciate if you could look into this issue and take appropriate action as soon as possible.",
		"Please consider this matter urgent and take the necessary steps to address it promptly.",
		"I hope you will give this issue the attention it deserves and resolve it quickly.",
		"I trust you will investigate this matter thoroughly and implement a solution without delay.",
	}

	thanks = [...]string{
		"Thank you for your attention to this issue.",
		"I appreciate your time and consideration in this matter.",
		"Thank you for taking the time to address this concern.",
		"I look forward to your response and action on this matter.",
		"Thank you for your cooperation in resolving this issue.",
	}

	signOffs = [...]string{
		"Best regards,",
		"Sincerely,",
		"Yours faithfully,",
		"Respectfully yours,",
		"Thank you,",
	}
)

type bucket struct {
	match   []string
	opening string
}

var buckets = []bucket{
	{[]string{"water", "sanitation", "sewage"}, "I am writing to bring to your attention a {category} issue that {urgency} in our area."},
	{[]string{"electricity", "power"}, "I am writing to report a {category} problem that {urgency} in our locality."},
	{[]string{"roads", "transport"}, "I am writing to bring to your notice a {category} issue that {urgency} in our area."},
	{[]string{"garbage", "waste"}, "I am writing to report a {category} management issue that {urgency} in our neighborhood."},
}

const genericOpening = "I am writing to bring to your attention a {category} issue that {urgency} in our area."

// bodyOpening picks the body template for a category by substring match.
func bodyOpening(category string) string {
	lower := strings.ToLower(category)
	for _, b := range buckets {
		for _, m := range b.match {
			if strings.Contains(lower, m) {
				return b.opening
			}
		}
	}
	return genericOpening
}

func fill(tmpl, category, region, urgency string) string {
	return strings.NewReplacer(
		"{category}", category,
		"{region}", region,
		"{urgency}", urgency,
	).Replace(tmpl)
}
