package llm

import (
	"fmt"
	"strings"

	"janai-go/internal/types"
)

const classifySystem = `You are an Indian emergency helpline assistant. You read what a citizen said
and return the helpline numbers that are relevant to it. Reply with JSON only.`

const classifyTemplate = `Analyze this text spoken in %s (region hint: %s): %q

Known national numbers:
- Emergency Response Support System (ERSS): 112
- Police: 100
- Fire: 101
- Ambulance: 108
- Women Helpline: 1091
- Child Helpline: 1098
- Senior Citizen: 14567
- Mental Health: 1800-599-0019
- Cyber Crime: 1930
- Water Supply: 1916
- Power Grid Emergency: 1912
- Railway Helpline: 139
- Health Helpline: 104

Rules:
1. Child emergencies list 1098 first.
2. Water problems (pani, water supply, sewerage, drainage) list 1916 first.
3. Electricity problems (bijli, power, outage, current) list 1912 first.
4. Always include 112.

Return exactly this JSON shape:
{
  "detectedLanguage": "language name",
  "detectedState": "Indian state or All India",
  "emergencyType": "police/medical/fire/women/child/accident/water/electricity/general",
  "helplineNumbers": [
    {"number": "", "name": "", "type": "", "description": "", "availability": "24/7", "state": "All India"}
  ],
  "translatedResponse": "one helpful sentence in the input language"
}`

func classifyPrompt(text, languageName, region string) string {
	if region == "" {
		region = "unknown"
	}
	return fmt.Sprintf(classifyTemplate, languageName, region, text)
}

const draftSystem = `You write formal complaint letters from citizens to Indian municipal
departments. Reply with JSON only.`

func draftPrompt(req types.DraftRequest) string {
	var b strings.Builder
	b.WriteString("Generate a professional complaint draft for a civic issue with the following details:\n\n")
	fmt.Fprintf(&b, "Issue Category: %s\nIssue Description: %s\nRegion: %s\n\n", req.Category, req.IssueDescription, req.Region)
	fmt.Fprintf(&b, "User Information:\n- Name: %s\n- Contact: %s\n- Email: %s\n\n", req.UserInfo.FullName, req.UserInfo.Mobile, req.UserInfo.Email)
	fmt.Fprintf(&b, "Address Details:\n- House No: %s\n- Address Line 1: %s\n- Address Line 2: %s\n- PIN Code: %s\n\n",
		req.Address.HouseNo, req.Address.AddressLine1, req.Address.AddressLine2, req.Address.PinCode)
	fmt.Fprintf(&b, `Requirements:
1. Start with a "Subject:" line.
2. Address the letter to the %s Department.
3. Include the issue details, the full address with PIN and the citizen's contact details.
4. End with a professional closing and the citizen's name.

Return {"draft": "<the complete letter>"}`, req.Category)
	return b.String()
}
