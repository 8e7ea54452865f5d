package course

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/google/uuid"
)

// namespace scopes every name-based identifier coursegen derives.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:coursegen"))

// ContentDigest returns the hex SHA-256 of a section's title and body.
func ContentDigest(section Section) string {
	sum := sha256.New()
	sum.Write([]byte(section.Title))
	sum.Write([]byte{0})
	sum.Write([]byte(section.Body))
	return hex.EncodeToString(sum.Sum(nil))
}

// LessonID derives a stable lesson identifier from the job, the section order
// and the section content digest. Identical inputs always yield the same id.
func LessonID(jobID string, order int, digest string) string {
	name := jobID + "|" + strconv.Itoa(order) + "|" + digest
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// CourseID derives the course identifier from its job.
func CourseID(jobID string) string {
	return uuid.NewSHA1(namespace, []byte("course|"+jobID)).String()
}
