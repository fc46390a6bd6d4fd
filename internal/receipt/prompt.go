package receipt

// DefaultExtractionPrompt asks the model for the four receipt fields as a
// JSON object.
const DefaultExtractionPrompt = `Extract the following information from this receipt image:
1. vendor_name: The store or vendor name (e.g., "Costco Business Center", "Walmart")
2. date: The transaction date in YYYY-MM-DD format (use the date on the receipt, or leave null if not found)
3. subtotal: The amount before tax (the subtotal line on the receipt)
4. total: The final amount paid including tax

Be precise with the numbers. If you cannot clearly read a value, set it to null.
Return the result as a JSON object with these exact keys: vendor_name, date, subtotal, total.`

// MaxOutputTokens bounds the size of the model's answer.
const MaxOutputTokens = 500
