package services

import (
	"fmt"
	"strings"

	"github.com/taoyanli0808/husky/internal/types"
)

// Required top-level keys of each stage's JSON response. CompleteJSON
// rejects payloads that lack the stage's key.
const (
	KeyChunks      = "chunks"
	KeyPoints      = "points"
	KeyTestcases   = "testcases"
	KeyDescription = "description"
)

const chunkingPromptTemplate = `Goal: decompose a large requirement document into logically independent analysis modules.
You are a senior product requirement analyst. Split the following product requirement document into logically independent modules.

**Input**:
1. The full original requirement document (may mix PRD content, user stories and technical notes)
2. The document kind (functional / performance / security requirements)

**Rules**:
1. Split modules by business domain and functional coupling (e.g. user module, payment module, message center)
2. Every module must contain a complete functional loop
3. The "chunks" field must quote the original text verbatim; never rewrite it

**Output format**:
1. Respond strictly in the following JSON shape; never add or remove fields
` + "```json" + `
{
    "chunks": [
        {
            "module": "user registration and login",
            "business_domain": "user accounts",
            "chunks": "covers phone-number registration, third-party login, password recovery"
        },
        {...}
    ]
}
` + "```" + `
Document to analyze: %s`

const pointExtractionPromptTemplate = `**Goal**: extract detailed functional points from one requirement module.
As a senior product manager, extract atomic functional points from the module below.

**Extraction rules**:
1. Identify the smallest deliverable functional unit (e.g. "supports WeChat login", not "user authentication system")
2. Classify the test type (functional, performance, compatibility, interaction)
3. Identify preconditions

**Output format**:
1. Respond strictly in the following JSON shape; never add or remove fields
2. Never add fields such as complexity or technical_complexity; rule 1 is absolute
` + "```json" + `
{
    "points": [
        {
            "function_name": "register with phone number and SMS code",
            "test_type": "compatibility",
            "description": "a user completes registration with phone number plus SMS verification code",
            "preconditions": ["SMS service available"]
        },
        {...}
    ]
}
` + "```" + `

Content to analyze:
1. Module name: %s
2. Business domain: %s
3. Original text: %s`

const testcasePromptTemplate = `You are a senior test engineer turning product requirements into manual test cases. Follow these rules strictly:
# Role and goal
- Role: functional test expert, strong at user-scenario analysis
- Input: a product requirement described in natural language
- Output: a directly executable set of manual test cases
- Volume: generate as many cases as reasonable, never fewer than 3 per call

# Generation rules
1. Scenario coverage:
    1.1 Normal flows (60%%): full happy-path verification
    1.2 Error flows (20%%): invalid operations / illegal input
    1.3 Boundary cases (20%%): extreme values / special conditions
2. Step style:
    2.1 Name the acting subject ("the tester enters ...")
    2.2 Include a verification point ("check that the page shows ...")
    2.3 Use the imperative ("click the login button")
3. Respond strictly in the following JSON shape; never add or remove fields
` + "```json" + `
{
    "testcases": [
        {
            "case_name": "log in with a valid phone number and password",
            "preconditions": ["registered user, account not locked"],
            "test_steps": [
                "Step 1: enter a valid phone number on the login page",
                "Step 2: enter the correct password",
                "Step 3: click the login button",
                "Step 4: check the page navigation"
            ],
            "expected_result": ["1. navigates to the profile page", "2. shows the user nickname"],
            "priority": "P0",
            "test_type": ["functional"]
        }
    ]
}
` + "```" + `

# Constraints
1. Never use implementation vocabulary (e.g. "send a POST request")
2. At most 6 steps per case
3. Expected results must be observable
4. At most 2 test-type tags per case

# Requirement text:
%s
Scope for this call:
1. Function name: %s
2. Function description: %s
3. Business domain: %s
4. Module: %s
5. Requirement excerpt: %s
6. Preconditions: %s
Understand the requirement and generate a complete test-case set for the excerpt.`

const requirementMetadataPromptTemplate = `You are a professional requirement analyst. Extract structured information from the requirement document below:

**Input**:
1. The raw requirement text (may contain formatting noise from PDF extraction)
2. The file name (helps identify the business domain)

**Rules**:
1. Summarize the document into a description of at most 100 words
2. Identify the owning business domain, e.g. payments / users / risk / marketing / catalog
3. Identify which modules the requirement covers, e.g. payment gateway / coupon system
4. Condense domain and module information into tags, e.g. "marketing", "coupons"

**Output (JSON)**:
{
    "description": "the marketing system needs discount-coupon support for the campaign period ...",
    "business_domain": "marketing",
    "module": "coupons",
    "tags": ["marketing", "coupons"]
}

**Text to parse**:
%s

**File name**:
%s`

// RenderChunkingPrompt builds the stage-1 instruction for splitting a
// requirement document into modules. Pure: same input, same prompt.
func RenderChunkingPrompt(originalText string) string {
	return fmt.Sprintf(chunkingPromptTemplate, originalText)
}

// RenderPointExtractionPrompt builds the stage-2 instruction for extracting
// atomic functional points from one module chunk.
func RenderPointExtractionPrompt(module, businessDomain, chunkText string) string {
	return fmt.Sprintf(pointExtractionPromptTemplate, module, businessDomain, chunkText)
}

// RenderTestcasePrompt builds the generation instruction for one functional
// point, with the full requirement text as context.
func RenderTestcasePrompt(requirementText string, point *types.FunctionalPoint) string {
	preconditions := strings.Join(DecodeStringList(point.Preconditions), "; ")
	return fmt.Sprintf(testcasePromptTemplate,
		requirementText,
		point.FunctionName,
		point.Description,
		point.BusinessDomain,
		point.Module,
		point.Chunks,
		preconditions,
	)
}

// RenderRequirementMetadataPrompt builds the upload-time instruction for
// extracting description, business domain, module and tags.
func RenderRequirementMetadataPrompt(originalText, filename string) string {
	return fmt.Sprintf(requirementMetadataPromptTemplate, originalText, filename)
}
