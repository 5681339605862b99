package scanning

// visionSystemPrompt frames the model as a receipt extractor
const visionSystemPrompt = `You are a precise extractor of Brazilian fiscal receipts (cupom fiscal, NFC-e, SAT). You read every line of the image and return structured JSON only.`

// visionExtractionPrompt is the shared prompt used by all vision providers
const visionExtractionPrompt = `Extract every purchased product from this receipt image.

1. **Item layouts**: products appear in one of these shapes. Recognize all of them:
   - Single line: "ARROZ BRANCO 5KG  1 UN x 25,90  25,90"
   - Two lines: a name line (often starting with an item number and a barcode), followed by a line with quantity, unit, unit price and total, e.g.
     "001 7891234567890 ARROZ BRANCO 5KG"
     "1 UN x 25,90  25,90"
   - Table rows under the header "CODIGO DESCRICAO QTDE UN VL.UNIT VL.TOTAL".
   Join broken lines. Remove item numbers and barcodes from descriptions.

2. **Never return these as items**:
   - payment blocks: FORMA DE PAGAMENTO, CARTAO, DEBITO, CREDITO, PIX, DINHEIRO, CARTEIRA DIGITAL, TROCO
   - totals: SUBTOTAL, TOTAL, VALOR A PAGAR, DESCONTO, ACRESCIMO, QTD. TOTAL DE ITENS
   - fiscal data: CNPJ, CPF, inscricao estadual, CHAVE DE ACESSO, PROTOCOLO, SERIE, tributos, barcodes and QR codes
   - staff and headers: OPERADOR, VENDEDOR, CAIXA, EMITENTE, CONSUMIDOR, addresses

3. **Amounts**:
   - The item total is the LAST money value on the item line. "3 UN x 2,99 8,97" has total 8.97, not 2.99.
   - Convert Brazilian format to a JSON number: 29,90 -> 29.90 and 1.234,56 -> 1234.56.
   - Quantity may be decimal for weighed goods (0.418 KG); use 1 when it is not a whole count.

4. **Self check**: the sum of item totals should be close to the receipt total. If "QTD. TOTAL DE ITENS" is printed, your item count should match it. If they do not agree, re-read the receipt before answering.

Return ONLY valid JSON in this exact format:
{
  "items": [
    {"description": "ARROZ BRANCO 5KG", "quantity": 1, "unit_price": 25.90, "total": 25.90}
  ],
  "metadata": {
    "establishment": "Store name or null",
    "cnpj": "NN.NNN.NNN/NNNN-NN or null",
    "date": "DD/MM/YYYY or null",
    "time": "HH:MM or null",
    "total": 25.90,
    "payment_method": "credit | debit | pix | cash | other or null"
  },
  "checks": {
    "sum_items": 25.90,
    "declared_total": 25.90,
    "delta": 0.00,
    "item_count": 1
  },
  "confidence": "high | medium | low"
}

Important:
- Do not invent data. Use null for anything you cannot read.
- Do not include any text before or after the JSON
- Do not use markdown code blocks`
