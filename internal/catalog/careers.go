package catalog

// careerCertifications maps a career path to the certification codes
// relevant for it. Used to scope diagnostics and skill reporting when
// the caller supplies a career path instead of an explicit code.
var careerCertifications = map[string][]string{
	"QA_ENGINEER":      {"ISTQB_CTFL", "ISTQB_AGILE", "ISTQB_AI"},
	"TESTER":           {"ISTQB_CTFL", "ISTQB_AGILE", "ISTQB_AI"},
	"SCRUM_MASTER":     {"PSM_I", "SCRUM_PSM_II"},
	"PRODUCT_OWNER":    {"SCRUM_PSPO_I"},
	"DEVELOPER":        {"DEV_BACKEND", "DEV_FRONTEND", "DEV_NODEJS", "DEV_PYTHON", "JAVA_OCP_17"},
	"BUSINESS_ANALYST": {"CBAP", "CCBA", "ECBA"},
	"AGILE_COACH":      {"PSM_I", "SCRUM_PSPO_I", "SCRUM_PSM_II"},
	"PROJECT_MANAGER":  {"PMI_PMP"},
	"DEVOPS":           {"DEV_DEVOPS", "DOCKER_DCA", "KUBERNETES_CKA", "HASHICORP_TERRAFORM"},
	"CLOUD":            {"AWS_SAA_C03", "AWS_DVA_C02", "AZURE_AZ104", "GCP_ACE"},
	"SECURITY":         {"COMPTIA_SECURITY_PLUS", "ISC2_CISSP"},
}

// CertificationsForCareer returns the certification codes for a career
// path, or nil when the path is unknown.
func CertificationsForCareer(careerPath string) []string {
	certs, ok := careerCertifications[careerPath]
	if !ok {
		return nil
	}
	out := make([]string, len(certs))
	copy(out, certs)
	return out
}
