package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"go-job-feed-watcher/internal/feed"
)

// DefaultProfile describes the operator the postings are matched for.
const DefaultProfile = `PROFESSIONAL PROFILE
Title: Software Engineer
Years of Experience: 1 year in software development

TECHNICAL SKILLS
Programming Languages: Python, C/C++, C#, Java
Backend Frameworks: Django, FastAPI, .NET Core, Spring Boot
Frontend Technologies: Angular, Next.js
Databases: MySQL, PostgreSQL, MongoDB
DevOps: Docker, Kubernetes, Linux, CI/CD pipelines

JOB PREFERENCES
- Backend Developer (Python, Django, FastAPI, .NET Core, Spring Boot)
- Full-Stack Developer (Python + Angular/Next.js)
- Software Engineer
- DevOps Engineer (Docker, Kubernetes, CI/CD)
- Remote or Morocco/Tanger locations
- Junior to Mid-level (1-3 years experience)`

// buildSystemPrompt creates the system instruction for the matching model
func buildSystemPrompt(profile string) string {
	return `You screen social media posts for job opportunities on behalf of one candidate.

CANDIDATE:
` + profile + `

Task:
1. Decide for each post whether it is a JOB POST. Look for keywords such as "hiring", "recrute", "recrutement", "job", "poste", "CDI", "CDD", "freelance", "opportunity", "opening", "position", "apply", "postuler", "candidature", "CV", "resume", "join our team", "we're hiring", and for job titles such as "developer", "engineer", "développeur", "ingénieur", "backend", "full-stack", "software", "DevOps".
2. SKIP non-job posts: articles, industry news, tips, achievements, motivational content, networking posts.
3. Keep only job posts that fit the candidate's preferences above.
4. For each kept post write a short message in this format:
🎯 JOB MATCH FOUND

Position: [Job Title]
Company: [Company Name]
Location: [Location/Remote]

Key Requirements:
- [Requirement 1]
- [Requirement 2]

Link: [Post URL]

Return ONLY a raw JSON object of the form {"matches": [{"index": <post index>, "text": "<message>"}]}. Use the index given with each post. Return {"matches": []} when nothing fits. Do NOT wrap the JSON in markdown blocks.`
}

type promptPost struct {
	Index    int    `json:"index"`
	Author   string `json:"author"`
	Text     string `json:"text"`
	Link     string `json:"link,omitempty"`
	Likes    *int   `json:"likes,omitempty"`
	Comments *int   `json:"comments,omitempty"`
}

// buildUserPrompt lists the candidate posts with their indexes
func buildUserPrompt(candidates []feed.CandidatePosting) (string, error) {
	posts := make([]promptPost, len(candidates))
	for i, c := range candidates {
		posts[i] = promptPost{
			Index:    i,
			Author:   c.Author,
			Text:     c.Text,
			Link:     c.Link,
			Likes:    c.Likes,
			Comments: c.Comments,
		}
	}
	data, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal posts: %w", err)
	}
	return fmt.Sprintf("Posts (JSON):\n%s\n\nReturn the matching posts as instructed.", data), nil
}

// cleanMarkdownJSON removes backticks and "json" prefix if the AI model tries to be helpful
func cleanMarkdownJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}
