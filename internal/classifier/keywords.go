package classifier

// scanKeywords is the vocabulary that decides whether a post is
// security-relevant at all. A post whose lower-cased title contains none of
// these terms is ignored by the pipeline.
var scanKeywords = []string{
	"cybersecurity", "malware", "phishing", "ransomware", "data breach",
	"vulnerability", "exploit", "threat intelligence", "incident response",
	"penetration testing", "network security", "firewall",
	"encryption", "authentication", "access control",
	"zero trust", "compliance", "risk management", "apt", "osint",
	"cve", "patch management", "cloud security", "api security",
	"iot security", "cryptography", "bug bounty", "forensics",
	"red team", "blue team", "devsecops", "dlp", "insider threat",
	"social engineering", "zero-day", "dns security", "ssl/tls",
}

// highSeverityKeywords mark a title HIGH severity. Checked before the medium
// list, so a title matching both tiers comes out HIGH.
var highSeverityKeywords = []string{
	"ransomware", "data breach", "apt", "zero-day", "critical",
	"exploit", "rce", "compromise", "attack", "incident",
}

// mediumSeverityKeywords mark a title MEDIUM severity when no high-severity
// keyword matched. Anything else defaults to LOW.
var mediumSeverityKeywords = []string{
	"vulnerability", "cve", "patch", "risk", "malware", "phishing",
	"threat intelligence", "forensics",
}

type incidentRule struct {
	incidentType IncidentType
	keywords     []string
}

// incidentRules maps incident categories to their trigger keywords.
// Declaration order matters: the first category with a matching keyword wins,
// so "lockbit data breach" is ransomware, not data_breach.
var incidentRules = []incidentRule{
	{IncidentMalware, []string{"malware", "worm", "trojan", "botnet"}},
	{IncidentPhishing, []string{"phishing", "spear phishing", "whaling"}},
	{IncidentRansomware, []string{"ransomware", "lockbit", "wannacry", "conti"}},
	{IncidentDataBreach, []string{"data breach", "breach", "leaked"}},
	{IncidentExploit, []string{"exploit", "rce", "remote code execution"}},
	{IncidentZeroDay, []string{"zero-day", "0-day", "zero day"}},
	{IncidentAPT, []string{"apt", "advanced persistent threat"}},
	{IncidentVulnerability, []string{"vulnerability", "cve", "patch"}},
}
