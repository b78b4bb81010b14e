package utils

// environment variables
const MONGODB_URI = "MONGODB_URI"
const MONGODB_DB = "MONGODB_DB"
const JWT_SECRET_KEY = "JWT_SECRET"
const PORT = "PORT"

// defaults
const DEFAULT_MONGODB_URI = "mongodb://localhost:27017"
const DEFAULT_MONGODB_DB = "speak_check"
const DEFAULT_PORT = "5005"

// bcrypt cost factor; embedded in each hash, so bumping it later only
// affects newly stored passwords
const HASH_ROUNDS = 10

// bcrypt reads at most 72 bytes of input; longer passwords are truncated
// before hashing so the full allowed length range still round-trips
const HASH_INPUT_LIMIT = 72

// characters counting as "special" for password strength
const SPECIAL_CHARS = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// generic client-facing messages; detail stays in the server log
const GENERIC_RESET_REQUEST_MESSAGE = "If the email is registered, a password reset link has been sent"
