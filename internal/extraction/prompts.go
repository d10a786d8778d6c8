package extraction

// Prompts are tuned for Indian insurance policy documents. The extraction
// prompts embed the exact JSON shape the verification flow expects, so any
// field rename here must be mirrored in the preview serializer.

const validityPrompt = `
Analyze this document carefully and determine if it is an Indian Insurance Policy document.

An insurance policy document should contain:
- Policy number
- Insurance company name
- Premium details or sum assured
- Policy terms and conditions
- Coverage details

This is NOT an insurance policy if it is:
- A bill, invoice, or receipt
- A bank statement
- An ID card (Aadhaar, PAN, etc.)
- A medical prescription or report
- A general document or letter
- Any other non-insurance document

Respond with ONLY:
"VALID" if this is a Life Insurance, Health Insurance, or Motor/Vehicle Insurance policy document
"INVALID: <reason>" if this is not an insurance policy (e.g., "INVALID: This appears to be a medical prescription")
`

const insuranceTypePrompt = `
Analyze this Indian insurance policy document and identify the insurance type.

Return ONLY one of these exact values:
- LIFE (for Life Insurance, Term Insurance, Endowment, ULIP, Whole Life, Money Back, etc.)
- HEALTH (for Health Insurance, Mediclaim, Family Floater, Critical Illness, Top-up, etc.)
- MOTOR (for Car Insurance, Two Wheeler Insurance, Vehicle Insurance, Motor Insurance)
- OTHER (if it's none of the above)

Return only the insurance type code (LIFE, HEALTH, MOTOR, or OTHER), nothing else.
`

const lifeExtractionPrompt = `
You are an expert at analyzing Indian Life Insurance policy documents.
Extract the following information and return it as valid JSON.

{
    "policy_number": "string",
    "insurer_name": "string (e.g., LIC, HDFC Life, ICICI Prudential, Max Life)",
    "coverage": {
        "sum_assured": number (in rupees, no commas),
        "premium_amount": number (in rupees, no commas),
        "premium_frequency": "MONTHLY/QUARTERLY/HALF_YEARLY/YEARLY",
        "maturity_amount": number or null (guaranteed amount payable at maturity, for endowment/money-back policies),
        "issue_date": "YYYY-MM-DD or null",
        "start_date": "YYYY-MM-DD or null",
        "end_date": "YYYY-MM-DD or null",
        "maturity_date": "YYYY-MM-DD or null"
    },
    "nominees": [
        {
            "name": "string",
            "relationship": "string (e.g., Spouse, Son, Daughter, Father, Mother)",
            "allocation_percentage": number (e.g., 100.00)
        }
    ],
    "benefits": [
        {
            "benefit_type": "BASE/RIDER/ADDON/BONUS",
            "name": "string",
            "description": "string or null",
            "coverage_amount": number or null
        }
    ],
    "exclusions": [
        {
            "title": "string",
            "description": "string"
        }
    ]
}

Important:
- Use YYYY-MM-DD format for dates
- Remove commas from numbers
- If info not found, use null
- Include all nominees found
- List major benefits and riders
- List 3-5 key exclusions

Return ONLY valid JSON.
`

const healthExtractionPrompt = `
You are an expert at analyzing Indian Health Insurance policy documents.
Extract the following information and return it as valid JSON.

{
    "policy_number": "string",
    "insurer_name": "string (e.g., Star Health, HDFC Ergo, Care Health, Niva Bupa)",
    "coverage": {
        "sum_assured": number (in rupees, no commas),
        "premium_amount": number (in rupees, no commas),
        "premium_frequency": "MONTHLY/QUARTERLY/HALF_YEARLY/YEARLY",
        "maturity_amount": number or null (if policy has maturity benefit),
        "issue_date": "YYYY-MM-DD or null",
        "start_date": "YYYY-MM-DD or null",
        "end_date": "YYYY-MM-DD or null",
        "maturity_date": "YYYY-MM-DD or null"
    },
    "health_details": {
        "policy_type": "INDIVIDUAL/FAMILY/SENIOR_CITIZEN",
        "room_rent_limit": number or null,
        "co_payment_percentage": number or null,
        "cashless_facility": true/false
    },
    "covered_members": [
        {
            "name": "string",
            "relationship": "string (Self/Spouse/Son/Daughter/Father/Mother)",
            "age": number or null
        }
    ],
    "benefits": [
        {
            "benefit_type": "BASE/RIDER/ADDON",
            "name": "string (e.g., Hospitalization, Ambulance, OPD)",
            "description": "string or null",
            "coverage_amount": number or null
        }
    ],
    "exclusions": [
        {
            "title": "string",
            "description": "string"
        }
    ]
}

Important:
- Use YYYY-MM-DD format for dates
- Remove commas from numbers
- If info not found, use null
- Include all family members
- List major benefits (hospitalization, day care, ambulance, etc.)
- List 5-7 key exclusions

Return ONLY valid JSON.
`

const motorExtractionPrompt = `
You are an expert at analyzing Indian Motor/Vehicle Insurance policy documents.
Extract the following information and return it as valid JSON.

{
    "policy_number": "string",
    "insurer_name": "string (e.g., ICICI Lombard, HDFC Ergo, Bajaj Allianz, Reliance General)",
    "coverage": {
        "sum_assured": number or null (total cover amount in rupees, no commas),
        "premium_amount": number (in rupees, no commas),
        "premium_frequency": "MONTHLY/QUARTERLY/HALF_YEARLY/YEARLY",
        "maturity_amount": null,
        "issue_date": "YYYY-MM-DD or null",
        "start_date": "YYYY-MM-DD or null (policy start date)",
        "end_date": "YYYY-MM-DD or null (policy expiry date)",
        "maturity_date": null
    },
    "motor_details": {
        "vehicle_type": "TWO_WHEELER/FOUR_WHEELER/COMMERCIAL",
        "policy_type": "COMPREHENSIVE/THIRD_PARTY/STANDALONE_OD",
        "vehicle_make": "string (e.g., Maruti Suzuki, Honda, Hyundai, Hero, Bajaj)",
        "vehicle_model": "string (e.g., Swift, City, i20, Splendor, Pulsar)",
        "registration_number": "string (e.g., MH01AB1234)",
        "engine_number": "string or null",
        "chassis_number": "string or null",
        "year_of_manufacture": number or null (e.g., 2020),
        "idv": number or null (Insured Declared Value in rupees, no commas),
        "own_damage_cover": number or null (OD cover amount),
        "third_party_cover": number or null (TP cover amount),
        "ncb_percentage": number or null (No Claim Bonus percentage, e.g., 20.00, 50.00),
        "previous_policy_number": "string or null",
        "has_zero_depreciation": true/false,
        "has_engine_protection": true/false,
        "has_roadside_assistance": true/false
    },
    "benefits": [
        {
            "benefit_type": "BASE/RIDER/ADDON",
            "name": "string (e.g., Own Damage, Third Party Liability, Personal Accident Cover, Zero Depreciation, Engine Protection)",
            "description": "string or null",
            "coverage_amount": number or null
        }
    ],
    "exclusions": [
        {
            "title": "string",
            "description": "string"
        }
    ]
}

Important:
- Use YYYY-MM-DD format for dates
- Remove commas from numbers
- If info not found, use null
- IDV is the current market value of the vehicle
- For COMPREHENSIVE policy, both own damage and third party are covered
- For THIRD_PARTY, only third party liability is covered
- NCB (No Claim Bonus) is the discount percentage for claim-free years
- List major benefits/add-ons (Zero Depreciation, Engine Protection, Road Side Assistance, etc.)
- List 3-5 key exclusions

Return ONLY valid JSON.
`

func extractionPromptFor(t string) string {
	switch t {
	case "LIFE":
		return lifeExtractionPrompt
	case "HEALTH":
		return healthExtractionPrompt
	case "MOTOR":
		return motorExtractionPrompt
	}
	return ""
}
